// Package scanner is the periodic trigger source: it enumerates a forward
// window of appointments and fires any reminder intervals that have come due.
package scanner

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carebridge/reminder-service/internal/campaign"
	"github.com/carebridge/reminder-service/internal/engine"
	"github.com/carebridge/reminder-service/internal/history"
	"github.com/carebridge/reminder-service/internal/records"
)

// ConfigStore is the scanner's view of the campaign config store.
type ConfigStore interface {
	Get(ctx context.Context) (campaign.Config, error)
	KeepAlive(ctx context.Context) error
}

type Scanner struct {
	engine    *engine.Engine
	repo      records.Repository
	configs   ConfigStore
	history   history.Log
	slack     time.Duration
	workers   int
	retention time.Duration
}

func New(eng *engine.Engine, repo records.Repository, configs ConfigStore, hist history.Log, slack time.Duration, workers int, retention time.Duration) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{
		engine:    eng,
		repo:      repo,
		configs:   configs,
		history:   hist,
		slack:     slack,
		workers:   workers,
		retention: retention,
	}
}

// RunOnce performs a single scan. The config is snapshotted once at the
// start; appointments are processed through a bounded worker pool so one
// slow send cannot stall the rest of the run. Overlapping runs are safe
// because every send is gated by an idempotent claim.
func (s *Scanner) RunOnce(ctx context.Context, now time.Time) error {
	cfg, err := s.configs.Get(ctx)
	if err != nil {
		log.Printf("campaign config unavailable, scanning with defaults: %v", err)
	}

	// Extend the config TTL on every pass so an admin-written config never
	// silently reverts to defaults from inactivity alone.
	if err := s.configs.KeepAlive(ctx); err != nil {
		log.Printf("config keepalive failed: %v", err)
	}

	if purged, err := s.history.Purge(ctx, now.Add(-s.retention)); err != nil {
		log.Printf("history purge failed: %v", err)
	} else if purged > 0 {
		log.Printf("purged %d expired history entries", purged)
	}

	if !cfg.Reminder.Enabled {
		log.Println("reminders disabled, skipping scan")
		return nil
	}

	intervals := cfg.ReminderIntervals()
	if len(intervals) == 0 {
		return nil
	}

	window := cfg.LongestInterval() + s.slack
	appointments, err := s.repo.ListAppointmentsStartingBetween(ctx, now, now.Add(window))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, appt := range appointments {
		appt := appt
		g.Go(func() error {
			s.scanAppointment(gctx, &appt, cfg, intervals, now)
			return nil
		})
	}

	return g.Wait()
}

// scanAppointment fires every due, still-unclaimed interval for one
// appointment. Due means the interval's trigger time has passed while the
// appointment itself is still in the future; the claim store ensures each
// interval fires at most once no matter how many scans observe it due.
func (s *Scanner) scanAppointment(ctx context.Context, appt *records.Appointment, cfg campaign.Config, intervals []time.Duration, now time.Time) {
	if !appt.StartTime.After(now) {
		return
	}

	for i, interval := range intervals {
		dueAt := appt.StartTime.Add(-interval)
		if now.Before(dueAt) {
			continue
		}

		if err := s.engine.RunCampaign(ctx, appt, cfg, campaign.ReminderKey(i)); err != nil {
			log.Printf("reminder[%d] for appointment %s: %v", i, appt.ID, err)
		}
	}
}
