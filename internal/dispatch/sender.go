// Package dispatch sends rendered messages through external providers and
// classifies failures as transient (retryable) or permanent.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/carebridge/reminder-service/internal/campaign"
)

// Message is a rendered, ready-to-send payload. Subject is only used by
// email senders.
type Message struct {
	Body    string
	Subject string
}

// Sender is one delivery channel's provider adapter.
type Sender interface {
	Kind() campaign.Channel
	Send(ctx context.Context, address string, msg Message) error
}

// DeliveryError carries the transient/permanent classification of a failed
// provider call.
type DeliveryError struct {
	Transient bool
	Reason    string
}

func (e *DeliveryError) Error() string {
	if e.Transient {
		return "transient delivery failure: " + e.Reason
	}
	return "permanent delivery failure: " + e.Reason
}

// TransientError marks a failure worth retrying (network trouble,
// rate-limiting, provider 5xx).
func TransientError(format string, args ...any) error {
	return &DeliveryError{Transient: true, Reason: fmt.Sprintf(format, args...)}
}

// PermanentError marks a terminal rejection (bad address, refused content,
// provider-level opt-out).
func PermanentError(format string, args ...any) error {
	return &DeliveryError{Transient: false, Reason: fmt.Sprintf(format, args...)}
}

// IsTransient reports whether err should be retried. Unclassified errors
// (timeouts, connection resets) count as transient.
func IsTransient(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Transient
	}
	return true
}

// classifyStatus maps a provider HTTP status to a delivery error. Timeouts,
// rate limits and server errors are transient; every other 4xx is a terminal
// rejection of this particular message.
func classifyStatus(status int, body string) error {
	switch {
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= 500:
		return TransientError("provider returned %d: %s", status, body)
	default:
		return PermanentError("provider returned %d: %s", status, body)
	}
}
