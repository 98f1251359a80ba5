// Package engine runs the claim+send cycle shared by the event triggers and
// the periodic scanner. Every send is gated by an atomic durable claim, so
// both trigger sources can evaluate the same appointment concurrently
// without ever producing a duplicate message.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/reminder-service/internal/campaign"
	"github.com/carebridge/reminder-service/internal/claim"
	"github.com/carebridge/reminder-service/internal/contact"
	"github.com/carebridge/reminder-service/internal/dispatch"
	"github.com/carebridge/reminder-service/internal/history"
	"github.com/carebridge/reminder-service/internal/records"
	"github.com/carebridge/reminder-service/internal/template"
)

// ConfigSource yields the campaign configuration snapshot for an evaluation.
type ConfigSource interface {
	Get(ctx context.Context) (campaign.Config, error)
}

type Engine struct {
	repo     records.Repository
	claims   claim.Store
	resolver *contact.Resolver
	senders  map[campaign.Channel]dispatch.Sender
	retrier  dispatch.Retrier
	configs  ConfigSource
	history  history.Log
}

func New(
	repo records.Repository,
	claims claim.Store,
	resolver *contact.Resolver,
	senders []dispatch.Sender,
	retrier dispatch.Retrier,
	configs ConfigSource,
	hist history.Log,
) *Engine {
	byChannel := make(map[campaign.Channel]dispatch.Sender, len(senders))
	for _, s := range senders {
		byChannel[s.Kind()] = s
	}
	return &Engine{
		repo:     repo,
		claims:   claims,
		resolver: resolver,
		senders:  byChannel,
		retrier:  retrier,
		configs:  configs,
		history:  hist,
	}
}

// Event trigger entry points. Each maps one appointment state transition to
// a single-shot campaign key and runs one claim+send cycle.

func (e *Engine) AppointmentCreated(ctx context.Context, appointmentID uuid.UUID) error {
	return e.handleEvent(ctx, appointmentID, campaign.TypeConfirmation)
}

func (e *Engine) AppointmentCanceled(ctx context.Context, appointmentID uuid.UUID) error {
	return e.handleEvent(ctx, appointmentID, campaign.TypeCancellation)
}

func (e *Engine) AppointmentNoShowed(ctx context.Context, appointmentID uuid.UUID) error {
	return e.handleEvent(ctx, appointmentID, campaign.TypeNoShow)
}

func (e *Engine) handleEvent(ctx context.Context, appointmentID uuid.UUID, t campaign.Type) error {
	cfg := e.configSnapshot(ctx)

	if !cfg.Campaign(t).Enabled {
		log.Printf("campaign %s disabled, skipping appointment %s", t, appointmentID)
		return nil
	}

	appt, err := e.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return fmt.Errorf("load appointment: %w", err)
	}

	return e.RunCampaign(ctx, appt, cfg, campaign.EventKey(t))
}

// configSnapshot loads the campaign config, degrading to defaults when the
// config store is unavailable.
func (e *Engine) configSnapshot(ctx context.Context) campaign.Config {
	cfg, err := e.configs.Get(ctx)
	if err != nil {
		log.Printf("campaign config unavailable, using defaults: %v", err)
	}
	return cfg
}

// RunCampaign runs one claim+send cycle for the given key against a config
// snapshot, attempting each configured channel independently. A channel that
// cannot be delivered never blocks the others.
func (e *Engine) RunCampaign(ctx context.Context, appt *records.Appointment, cfg campaign.Config, key campaign.Key) error {
	settings := cfg.Campaign(key.Type)
	if !settings.Enabled {
		return nil
	}

	patient, err := e.repo.GetPatientByID(ctx, appt.PatientID)
	if err != nil {
		return fmt.Errorf("load patient: %w", err)
	}

	// Provider and location are display-only; a missing record falls back
	// to generic text rather than blocking the send.
	provider, err := e.repo.GetProviderByID(ctx, appt.ProviderID)
	if err != nil && !errors.Is(err, records.ErrProviderNotFound) {
		return fmt.Errorf("load provider: %w", err)
	}

	var location *records.Location
	if appt.LocationID != nil {
		location, err = e.repo.GetLocationByID(ctx, *appt.LocationID)
		if err != nil && !errors.Is(err, records.ErrLocationNotFound) {
			return fmt.Errorf("load location: %w", err)
		}
	}

	bindings := template.NewBindings(patient, provider, location, appt.StartTime, cfg)

	var firstErr error
	for _, ch := range settings.Channels {
		if err := e.sendChannel(ctx, appt, settings, key, ch, bindings); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// sendChannel is the per-channel cycle: claim, resolve, render, dispatch,
// record. A send is only ever issued while holding the claim; if the claim
// store is unreachable the send is aborted outright.
func (e *Engine) sendChannel(ctx context.Context, appt *records.Appointment, settings campaign.Settings, key campaign.Key, ch campaign.Channel, bindings template.Bindings) error {
	won, err := e.claims.TryClaim(ctx, appt.ID, key, ch)
	if err != nil {
		return fmt.Errorf("claim %s/%s: %w", key, ch, err)
	}
	if !won {
		// Another execution owns or already finished this key.
		return nil
	}

	address, err := e.resolver.Resolve(ctx, appt.PatientID, ch)
	if err != nil {
		if errors.Is(err, contact.ErrNoEligibleContact) {
			e.finish(ctx, appt, key, ch, claim.OutcomeSkipped, history.StatusSkipped, "no eligible contact")
			return nil
		}
		// Lookup failure: release into the transient path so a later scan
		// can retry.
		e.finish(ctx, appt, key, ch, claim.OutcomeTransientFailure, history.StatusFailed, err.Error())
		return fmt.Errorf("resolve contact: %w", err)
	}

	body, renderErr := e.renderFor(settings, ch, bindings)
	if renderErr != nil {
		// A template referencing unbound variables must never reach a
		// patient; terminal, surfaced in the admin-visible log.
		e.finish(ctx, appt, key, ch, claim.OutcomePermanentFailure, history.StatusFailed, renderErr.Error())
		return nil
	}

	sender, ok := e.senders[ch]
	if !ok {
		e.finish(ctx, appt, key, ch, claim.OutcomePermanentFailure, history.StatusFailed, fmt.Sprintf("no sender for channel %s", ch))
		return nil
	}

	msg := dispatch.Message{Body: body, Subject: campaign.EmailSubject(key.Type)}
	sendErr := e.retrier.Send(ctx, sender, address, msg)
	if sendErr == nil {
		e.finish(ctx, appt, key, ch, claim.OutcomeDelivered, history.StatusDelivered, "")
		return nil
	}

	if dispatch.IsTransient(sendErr) {
		e.finish(ctx, appt, key, ch, claim.OutcomeTransientFailure, history.StatusFailed, sendErr.Error())
	} else {
		e.finish(ctx, appt, key, ch, claim.OutcomePermanentFailure, history.StatusFailed, sendErr.Error())
	}
	return nil
}

func (e *Engine) renderFor(settings campaign.Settings, ch campaign.Channel, bindings template.Bindings) (string, error) {
	tmpl := settings.SMSTemplate
	if ch == campaign.ChannelEmail {
		tmpl = settings.EmailTemplate
	}
	return template.Render(tmpl, bindings)
}

// finish records the claim outcome and appends the history projection. The
// history append is best-effort; the claim transition is not.
func (e *Engine) finish(ctx context.Context, appt *records.Appointment, key campaign.Key, ch campaign.Channel, outcome claim.Outcome, status history.Status, detail string) {
	if err := e.claims.RecordOutcome(ctx, appt.ID, key, ch, outcome, detail); err != nil {
		log.Printf("failed to record outcome %s for %s/%s/%s: %v", outcome, appt.ID, key, ch, err)
	}

	e.history.Append(ctx, history.Entry{
		Timestamp:     time.Now(),
		PatientID:     appt.PatientID,
		AppointmentID: appt.ID,
		CampaignKey:   key.String(),
		Channel:       ch,
		Status:        status,
		Detail:        detail,
	})
}
