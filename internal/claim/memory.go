package claim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/reminder-service/internal/campaign"
)

// MemoryStore is an in-process Store with the same compare-and-set semantics
// as the Postgres implementation. Used by tests and local runs without a
// database.
type MemoryStore struct {
	mu        sync.Mutex
	claims    map[string]*Claim
	maxClaims int
}

func NewMemoryStore(maxRetries int) *MemoryStore {
	return &MemoryStore{
		claims:    make(map[string]*Claim),
		maxClaims: maxRetries + 1,
	}
}

func memKey(appointmentID uuid.UUID, key campaign.Key, ch campaign.Channel) string {
	return fmt.Sprintf("%s|%s|%s", appointmentID, key, ch)
}

func (s *MemoryStore) TryClaim(_ context.Context, appointmentID uuid.UUID, key campaign.Key, ch campaign.Channel) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	k := memKey(appointmentID, key, ch)

	existing, ok := s.claims[k]
	if !ok {
		s.claims[k] = &Claim{
			AppointmentID: appointmentID,
			CampaignKey:   key.String(),
			Channel:       ch,
			Status:        StatusClaimed,
			Attempts:      1,
			ClaimedAt:     now,
			UpdatedAt:     now,
		}
		return true, nil
	}

	if existing.Status == StatusFailedTransient && existing.Attempts < s.maxClaims {
		existing.Status = StatusClaimed
		existing.Attempts++
		existing.ClaimedAt = now
		existing.UpdatedAt = now
		return true, nil
	}

	return false, nil
}

func (s *MemoryStore) RecordOutcome(_ context.Context, appointmentID uuid.UUID, key campaign.Key, ch campaign.Channel, outcome Outcome, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.claims[memKey(appointmentID, key, ch)]
	if !ok || c.Status != StatusClaimed {
		return ErrNotClaimed
	}

	switch outcome {
	case OutcomeDelivered:
		c.Status = StatusDelivered
	case OutcomePermanentFailure:
		c.Status = StatusFailedExhausted
	case OutcomeSkipped:
		c.Status = StatusSkipped
	case OutcomeTransientFailure:
		if c.Attempts < s.maxClaims {
			c.Status = StatusFailedTransient
		} else {
			c.Status = StatusFailedExhausted
		}
	default:
		return fmt.Errorf("unknown outcome %q", outcome)
	}

	if detail != "" {
		d := detail
		c.LastError = &d
	}
	c.UpdatedAt = time.Now()

	return nil
}

func (s *MemoryStore) Get(_ context.Context, appointmentID uuid.UUID, key campaign.Key, ch campaign.Channel) (*Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.claims[memKey(appointmentID, key, ch)]
	if !ok {
		return nil, ErrClaimNotFound
	}

	cp := *c
	return &cp, nil
}
