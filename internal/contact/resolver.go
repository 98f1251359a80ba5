// Package contact resolves a patient and channel to a single destination
// address under a fixed eligibility and ordering policy.
package contact

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/carebridge/reminder-service/internal/campaign"
	"github.com/carebridge/reminder-service/internal/records"
)

// ErrNoEligibleContact means the patient has no usable contact point for the
// requested channel. This is a normal, non-retryable outcome, not a delivery
// failure.
var ErrNoEligibleContact = errors.New("no eligible contact")

type Resolver struct {
	repo records.Repository
}

func NewResolver(repo records.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the single destination address for a patient and channel.
// Eligibility: active, consented, not opted out. Tie-break among eligible
// contacts: explicit primary flag first, then most recently added.
func (r *Resolver) Resolve(ctx context.Context, patientID uuid.UUID, ch campaign.Channel) (string, error) {
	kind, err := kindForChannel(ch)
	if err != nil {
		return "", err
	}

	points, err := r.repo.ListContactPoints(ctx, patientID, kind)
	if err != nil {
		return "", fmt.Errorf("list contact points: %w", err)
	}

	// The repository orders primary-first, newest-first; the first eligible
	// contact is the winner.
	for _, c := range points {
		if c.Eligible() {
			return c.Address, nil
		}
	}

	return "", ErrNoEligibleContact
}

func kindForChannel(ch campaign.Channel) (records.ContactKind, error) {
	switch ch {
	case campaign.ChannelSMS:
		return records.KindPhone, nil
	case campaign.ChannelEmail:
		return records.KindEmail, nil
	}
	return "", fmt.Errorf("unknown channel %q", ch)
}
