package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/carebridge/reminder-service/internal/campaign"
	"github.com/carebridge/reminder-service/internal/claim"
	"github.com/carebridge/reminder-service/internal/config"
	"github.com/carebridge/reminder-service/internal/contact"
	"github.com/carebridge/reminder-service/internal/db"
	"github.com/carebridge/reminder-service/internal/dispatch"
	"github.com/carebridge/reminder-service/internal/engine"
	"github.com/carebridge/reminder-service/internal/history"
	"github.com/carebridge/reminder-service/internal/records"
	"github.com/carebridge/reminder-service/internal/redisclient"
	"github.com/carebridge/reminder-service/internal/scanner"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("scan-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running scan worker in env=%s interval=%s keepalive=%s", cfg.Env, cfg.ScanInterval, cfg.KeepAliveEvery)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	repo := records.NewPgRepository(pgPool)
	claims := claim.NewPgStore(pgPool, cfg.ClaimRetries)
	configs := campaign.NewStore(rdb, cfg.ConfigTTL)
	hist := history.NewPgLog(pgPool)
	resolver := contact.NewResolver(repo)
	retrier := dispatch.NewRetrier(cfg.SendAttempts, 500*time.Millisecond)

	eng := engine.New(repo, claims, resolver, buildSenders(cfg), retrier, configs, hist)
	scan := scanner.New(eng, repo, configs, hist, cfg.ScanSlack, cfg.ScanWorkers, cfg.HistoryRetention)

	// Run once at startup
	runOnce(rootCtx, scan, cfg.ScanRunTimeout)

	ticker := time.NewTicker(cfg.ScanInterval)
	defer ticker.Stop()

	// Independent keepalive cadence: the config TTL must be extended even
	// while reminders are disabled or scans are failing.
	keepalive := time.NewTicker(cfg.KeepAliveEvery)
	defer keepalive.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping scan worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, scan, cfg.ScanRunTimeout)
		case <-keepalive.C:
			kaCtx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
			if err := configs.KeepAlive(kaCtx); err != nil {
				log.Printf("config keepalive error: %v", err)
			}
			cancel()
		}
	}
}

func runOnce(ctx context.Context, scan *scanner.Scanner, timeout time.Duration) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := scan.RunOnce(runCtx, start); err != nil {
		log.Printf("scan run error: %v", err)
		return
	}
	log.Printf("scan run complete in %s", time.Since(start))
}

// buildSenders wires one sender per channel, substituting a dry-run sender
// for any channel whose provider credentials are not configured.
func buildSenders(cfg config.Config) []dispatch.Sender {
	var senders []dispatch.Sender

	if cfg.SMSConfigured() {
		senders = append(senders, dispatch.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.DispatchTimeout))
	} else {
		log.Println("twilio credentials missing, sms channel running in dry-run mode")
		senders = append(senders, dispatch.NewDryRunSender(campaign.ChannelSMS))
	}

	if cfg.EmailConfigured() {
		senders = append(senders, dispatch.NewSendGridSender(cfg.SendGridAPIKey, cfg.SendGridFromEmail, cfg.DispatchTimeout))
	} else {
		log.Println("sendgrid credentials missing, email channel running in dry-run mode")
		senders = append(senders, dispatch.NewDryRunSender(campaign.ChannelEmail))
	}

	return senders
}
