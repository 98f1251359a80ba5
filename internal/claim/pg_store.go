package claim

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebridge/reminder-service/internal/campaign"
)

// PgStore persists claims in Postgres. Both the claim and the outcome
// transition are single statements, so concurrent evaluators serialize on
// the row without any application-level locking.
type PgStore struct {
	pool      *pgxpool.Pool
	maxClaims int
}

// NewPgStore creates a store allowing up to maxRetries re-claims after
// transient failures (so maxRetries+1 total claims per key).
func NewPgStore(pool *pgxpool.Pool, maxRetries int) *PgStore {
	return &PgStore{pool: pool, maxClaims: maxRetries + 1}
}

func (s *PgStore) TryClaim(ctx context.Context, appointmentID uuid.UUID, key campaign.Key, ch campaign.Channel) (bool, error) {
	// Insert wins the fresh key; the conflict arm retakes only a
	// failed_transient row with budget remaining. No row back means the key
	// is owned or terminal.
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO message_claims (appointment_id, campaign_key, channel, status, attempts, claimed_at, updated_at)
		VALUES ($1, $2, $3, 'claimed', 1, now(), now())
		ON CONFLICT (appointment_id, campaign_key, channel) DO UPDATE
		SET status = 'claimed',
		    attempts = message_claims.attempts + 1,
		    claimed_at = now(),
		    updated_at = now()
		WHERE message_claims.status = 'failed_transient'
		  AND message_claims.attempts < $4
	`, appointmentID, key.String(), ch, s.maxClaims)
	if err != nil {
		return false, fmt.Errorf("try claim %s/%s/%s: %w", appointmentID, key, ch, err)
	}

	return tag.RowsAffected() == 1, nil
}

func (s *PgStore) RecordOutcome(ctx context.Context, appointmentID uuid.UUID, key campaign.Key, ch campaign.Channel, outcome Outcome, detail string) error {
	var status Status
	switch outcome {
	case OutcomeDelivered:
		status = StatusDelivered
	case OutcomePermanentFailure:
		status = StatusFailedExhausted
	case OutcomeSkipped:
		status = StatusSkipped
	case OutcomeTransientFailure:
		// Resolved in SQL against the attempt count.
	default:
		return fmt.Errorf("unknown outcome %q", outcome)
	}

	var lastError *string
	if detail != "" {
		lastError = &detail
	}

	var tag pgconn.CommandTag
	var err error
	if outcome == OutcomeTransientFailure {
		tag, err = s.pool.Exec(ctx, `
			UPDATE message_claims
			SET status = CASE WHEN attempts < $4 THEN 'failed_transient' ELSE 'failed_exhausted' END,
			    last_error = $5,
			    updated_at = now()
			WHERE appointment_id = $1 AND campaign_key = $2 AND channel = $3
			  AND status = 'claimed'
		`, appointmentID, key.String(), ch, s.maxClaims, lastError)
	} else {
		tag, err = s.pool.Exec(ctx, `
			UPDATE message_claims
			SET status = $4,
			    last_error = $5,
			    updated_at = now()
			WHERE appointment_id = $1 AND campaign_key = $2 AND channel = $3
			  AND status = 'claimed'
		`, appointmentID, key.String(), ch, status, lastError)
	}
	if err != nil {
		return fmt.Errorf("record outcome %s/%s/%s: %w", appointmentID, key, ch, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotClaimed
	}

	return nil
}

func (s *PgStore) Get(ctx context.Context, appointmentID uuid.UUID, key campaign.Key, ch campaign.Channel) (*Claim, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT appointment_id, campaign_key, channel, status, attempts, claimed_at, updated_at, last_error
		FROM message_claims
		WHERE appointment_id = $1 AND campaign_key = $2 AND channel = $3
	`, appointmentID, key.String(), ch)

	var c Claim
	err := row.Scan(
		&c.AppointmentID,
		&c.CampaignKey,
		&c.Channel,
		&c.Status,
		&c.Attempts,
		&c.ClaimedAt,
		&c.UpdatedAt,
		&c.LastError,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}

	return &c, nil
}
