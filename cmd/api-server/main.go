package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/carebridge/reminder-service/internal/api"
	"github.com/carebridge/reminder-service/internal/campaign"
	"github.com/carebridge/reminder-service/internal/claim"
	"github.com/carebridge/reminder-service/internal/config"
	"github.com/carebridge/reminder-service/internal/contact"
	"github.com/carebridge/reminder-service/internal/db"
	"github.com/carebridge/reminder-service/internal/dispatch"
	"github.com/carebridge/reminder-service/internal/engine"
	"github.com/carebridge/reminder-service/internal/events"
	"github.com/carebridge/reminder-service/internal/history"
	"github.com/carebridge/reminder-service/internal/records"
	"github.com/carebridge/reminder-service/internal/redisclient"
)

const version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s", cfg.Env, cfg.HTTPPort)

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

	// Connect Redis
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

	router := api.NewRouter(api.RouterConfig{
		Events:  eng,
		Configs: configs,
		History: hist,
		PgPool:  pgPool,
		Redis:   rdb,
		Env:     cfg.Env,
		Version: version,
	})

	if cfg.AMQPURL != "" {
		consumer, err := events.NewConsumer(cfg.AMQPURL, "appointment-events", eng)
		if err != nil {
			log.Fatalf("amqp connection error: %v", err)
		}
		defer consumer.Close()
		go func() {
			if err := consumer.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("amqp consumer stopped: %v", err)
			}
		}()
		log.Println("consuming appointment events from AMQP")
	}

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Printf("listening on :%s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
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
