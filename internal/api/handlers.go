package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carebridge/reminder-service/internal/campaign"
	"github.com/carebridge/reminder-service/internal/history"
	"github.com/carebridge/reminder-service/internal/records"
)

// EventService is the engine surface the inbound event endpoints call.
type EventService interface {
	AppointmentCreated(ctx context.Context, appointmentID uuid.UUID) error
	AppointmentCanceled(ctx context.Context, appointmentID uuid.UUID) error
	AppointmentNoShowed(ctx context.Context, appointmentID uuid.UUID) error
}

// ConfigStore is the admin surface over the campaign config.
type ConfigStore interface {
	Get(ctx context.Context) (campaign.Config, error)
	Put(ctx context.Context, cfg campaign.Config) error
}

func getConfigHandler(store ConfigStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := store.Get(r.Context())
		if err != nil {
			// Degraded read still serves the effective (default) config.
			writeJSON(w, http.StatusOK, cfg)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

func putConfigHandler(store ConfigStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg campaign.Config
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if err := store.Put(r.Context(), cfg); err != nil {
			if errors.Is(err, campaign.ErrInvalidConfig) {
				writeError(w, http.StatusBadRequest, "invalid_config", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, cfg)
	}
}

func globalHistoryHandler(hist history.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filters := history.Filters{
			CampaignKey: q.Get("campaign"),
			Channel:     q.Get("channel"),
			Status:      q.Get("status"),
		}
		limit := queryInt(q.Get("limit"), 20)
		offset := queryInt(q.Get("offset"), 0)

		entries, err := hist.QueryGlobal(r.Context(), filters, limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toHistoryPage(entries, limit, offset))
	}
}

func patientHistoryHandler(hist history.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := chi.URLParam(r, "id")
		patientID, err := uuid.Parse(idStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		q := r.URL.Query()
		limit := queryInt(q.Get("limit"), 20)
		offset := queryInt(q.Get("offset"), 0)

		entries, err := hist.QueryForPatient(r.Context(), patientID, limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, toHistoryPage(entries, limit, offset))
	}
}

// appointmentEventHandler maps one lifecycle event endpoint to the engine.
// The host system delivers events at-least-once; replays are harmless
// because sends are claim-gated.
func appointmentEventHandler(campaignName string, handle func(ctx context.Context, id uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AppointmentEventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appointmentID, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
			return
		}

		if err := handle(r.Context(), appointmentID); err != nil {
			handleEventError(w, err)
			return
		}

		writeJSON(w, http.StatusAccepted, EventAcceptedResponse{
			AppointmentID: appointmentID,
			Campaign:      campaignName,
		})
	}
}

func handleEventError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, records.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, records.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func queryInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
