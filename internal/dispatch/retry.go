package dispatch

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retrier wraps a sender call with bounded exponential backoff. Only
// transient failures are retried; permanent failures surface immediately.
type Retrier struct {
	maxAttempts     int
	initialInterval time.Duration
}

func NewRetrier(maxAttempts int, initialInterval time.Duration) Retrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return Retrier{maxAttempts: maxAttempts, initialInterval: initialInterval}
}

// Send attempts the delivery up to maxAttempts times. The returned error,
// if any, is the last attempt's classification.
func (r Retrier) Send(ctx context.Context, s Sender, address string, msg Message) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.initialInterval

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(r.maxAttempts-1)), ctx)

	op := func() error {
		err := s.Send(ctx, address, msg)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(op, policy)
}
