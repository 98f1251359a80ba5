package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/carebridge/reminder-service/internal/history"
)

type RouterConfig struct {
	Events  EventService
	Configs ConfigStore
	History history.Log
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Admin surface
	r.Get("/admin/config", getConfigHandler(cfg.Configs))
	r.Put("/admin/config", putConfigHandler(cfg.Configs))
	r.Get("/admin/history", globalHistoryHandler(cfg.History))
	r.Get("/patients/{id}/history", patientHistoryHandler(cfg.History))

	// Inbound appointment lifecycle events
	r.Post("/events/appointment-created", appointmentEventHandler("confirmation", cfg.Events.AppointmentCreated))
	r.Post("/events/appointment-canceled", appointmentEventHandler("cancellation", cfg.Events.AppointmentCanceled))
	r.Post("/events/appointment-no-showed", appointmentEventHandler("no_show", cfg.Events.AppointmentNoShowed))

	return r
}
