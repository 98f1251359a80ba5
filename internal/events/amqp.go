// Package events consumes appointment lifecycle events from an AMQP broker
// for host systems that publish state transitions instead of calling the
// HTTP endpoints. Delivery is at-least-once; replays are safe because every
// send is claim-gated.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/carebridge/reminder-service/internal/records"
)

const (
	TypeAppointmentCreated  = "appointment_created"
	TypeAppointmentCanceled = "appointment_canceled"
	TypeAppointmentNoShowed = "appointment_no_showed"
)

// Handler is the engine surface the consumer dispatches into.
type Handler interface {
	AppointmentCreated(ctx context.Context, appointmentID uuid.UUID) error
	AppointmentCanceled(ctx context.Context, appointmentID uuid.UUID) error
	AppointmentNoShowed(ctx context.Context, appointmentID uuid.UUID) error
}

type LifecycleEvent struct {
	Type          string `json:"type"`
	AppointmentID string `json:"appointment_id"`
}

type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	handler Handler
}

// NewConsumer connects to the broker and declares the durable event queue.
func NewConsumer(url, queue string, handler Handler) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	_, err = channel.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &Consumer{
		conn:    conn,
		channel: channel,
		queue:   queue,
		handler: handler,
	}, nil
}

// Run consumes events until the context is canceled or the broker closes
// the channel.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("amqp delivery channel closed")
			}
			c.handleDelivery(ctx, d)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var ev LifecycleEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		log.Printf("dropping malformed event: %v", err)
		_ = d.Ack(false)
		return
	}

	appointmentID, err := uuid.Parse(ev.AppointmentID)
	if err != nil {
		log.Printf("dropping event with bad appointment id %q: %v", ev.AppointmentID, err)
		_ = d.Ack(false)
		return
	}

	err = c.dispatch(ctx, ev.Type, appointmentID)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, records.ErrAppointmentNotFound), errors.Is(err, errUnknownEventType):
		// Nothing a redelivery could fix.
		log.Printf("dropping event type=%s appointment=%s: %v", ev.Type, appointmentID, err)
		_ = d.Ack(false)
	default:
		// Transient trouble: requeue once, the broker redelivers.
		log.Printf("requeueing event type=%s appointment=%s: %v", ev.Type, appointmentID, err)
		_ = d.Nack(false, !d.Redelivered)
	}
}

var errUnknownEventType = errors.New("unknown event type")

func (c *Consumer) dispatch(ctx context.Context, eventType string, appointmentID uuid.UUID) error {
	switch eventType {
	case TypeAppointmentCreated:
		return c.handler.AppointmentCreated(ctx, appointmentID)
	case TypeAppointmentCanceled:
		return c.handler.AppointmentCanceled(ctx, appointmentID)
	case TypeAppointmentNoShowed:
		return c.handler.AppointmentNoShowed(ctx, appointmentID)
	}
	return fmt.Errorf("%w: %q", errUnknownEventType, eventType)
}

func (c *Consumer) Close() {
	if err := c.channel.Close(); err != nil {
		log.Printf("error closing amqp channel: %v", err)
	}
	if err := c.conn.Close(); err != nil {
		log.Printf("error closing amqp connection: %v", err)
	}
}
