package dispatch

import (
	"context"
	"log"

	"github.com/carebridge/reminder-service/internal/campaign"
)

// DryRunSender stands in for a channel whose provider credentials are not
// configured. It logs the message and reports success, so the rest of the
// pipeline (claims, history) behaves exactly as in production.
type DryRunSender struct {
	kind campaign.Channel
}

func NewDryRunSender(kind campaign.Channel) *DryRunSender {
	return &DryRunSender{kind: kind}
}

func (s *DryRunSender) Kind() campaign.Channel {
	return s.kind
}

func (s *DryRunSender) Send(_ context.Context, address string, msg Message) error {
	log.Printf("dry-run send channel=%s to=%s subject=%q body_len=%d", s.kind, address, msg.Subject, len(msg.Body))
	return nil
}
