package claim

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/reminder-service/internal/campaign"
)

type Status string

const (
	StatusClaimed         Status = "claimed"
	StatusDelivered       Status = "delivered"
	StatusFailedTransient Status = "failed_transient"
	StatusFailedExhausted Status = "failed_exhausted"
	StatusSkipped         Status = "skipped"
)

// Terminal reports whether no further attempt may ever touch this claim.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusFailedExhausted || s == StatusSkipped
}

// Outcome is what the dispatch cycle reports back after owning a claim.
type Outcome string

const (
	OutcomeDelivered        Outcome = "delivered"
	OutcomeTransientFailure Outcome = "transient_failure"
	OutcomePermanentFailure Outcome = "permanent_failure"
	// OutcomeSkipped covers the no-eligible-contact case: terminal, but not
	// a delivery failure.
	OutcomeSkipped Outcome = "skipped"
)

// Claim is the durable at-most-once record for one message send, keyed by
// appointment, campaign key and channel. It lives in the same durable store
// as the appointment itself, never in the TTL-bound config cache.
type Claim struct {
	AppointmentID uuid.UUID
	CampaignKey   string
	Channel       campaign.Channel
	Status        Status
	Attempts      int
	ClaimedAt     time.Time
	UpdatedAt     time.Time
	LastError     *string
}

var (
	ErrClaimNotFound = errors.New("claim not found")
	// ErrNotClaimed is returned when an outcome arrives for a claim that is
	// not currently in the claimed state.
	ErrNotClaimed = errors.New("claim is not in claimed state")
)

// Store is the single serialization point between the event triggers and the
// periodic scanner. TryClaim must be atomic: exactly one caller wins a given
// (appointment, key, channel) at a time.
type Store interface {
	// TryClaim attempts the unclaimed → claimed transition. It succeeds when
	// no record exists, or when the record is failed_transient with retry
	// budget remaining. false means another execution owns (or finished)
	// the key and the caller must do nothing further for it.
	TryClaim(ctx context.Context, appointmentID uuid.UUID, key campaign.Key, ch campaign.Channel) (bool, error)

	// RecordOutcome moves a claimed record to its next state. A transient
	// failure goes back to failed_transient only while budget remains;
	// otherwise it lands on failed_exhausted.
	RecordOutcome(ctx context.Context, appointmentID uuid.UUID, key campaign.Key, ch campaign.Channel, outcome Outcome, detail string) error

	Get(ctx context.Context, appointmentID uuid.UUID, key campaign.Key, ch campaign.Channel) (*Claim, error)
}
