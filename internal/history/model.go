// Package history keeps the rolling message log shown in the admin and
// patient views. It is a read-optimized projection: best-effort, time-bounded
// and never consulted for dedup.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/reminder-service/internal/campaign"
)

type Status string

const (
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusPending   Status = "pending"
)

type Entry struct {
	ID            int64
	Timestamp     time.Time
	PatientID     uuid.UUID
	AppointmentID uuid.UUID
	CampaignKey   string
	Channel       campaign.Channel
	Status        Status
	Detail        string
}

// Filters narrows the global history query. Empty fields match everything.
type Filters struct {
	CampaignKey string
	Channel     string
	Status      string
}

// Log records dispatch outcomes. Append is best-effort: implementations log
// their own failures and must never block or roll back a claim transition.
type Log interface {
	Append(ctx context.Context, e Entry)
	QueryGlobal(ctx context.Context, f Filters, limit, offset int) ([]Entry, error)
	QueryForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Entry, error)
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}

// clampPage applies the shared pagination bounds.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
