package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/reminder-service/internal/history"
)

type AppointmentEventRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type EventAcceptedResponse struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Campaign      string    `json:"campaign"`
}

type HistoryEntryResponse struct {
	Timestamp     time.Time `json:"timestamp"`
	PatientID     uuid.UUID `json:"patient_id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	CampaignKey   string    `json:"campaign_key"`
	Channel       string    `json:"channel"`
	Status        string    `json:"status"`
	Detail        string    `json:"detail,omitempty"`
}

type HistoryPageResponse struct {
	Entries []HistoryEntryResponse `json:"entries"`
	Limit   int                    `json:"limit"`
	Offset  int                    `json:"offset"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toHistoryPage(entries []history.Entry, limit, offset int) HistoryPageResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntryResponse{
			Timestamp:     e.Timestamp,
			PatientID:     e.PatientID,
			AppointmentID: e.AppointmentID,
			CampaignKey:   e.CampaignKey,
			Channel:       string(e.Channel),
			Status:        string(e.Status),
			Detail:        e.Detail,
		})
	}
	return HistoryPageResponse{Entries: out, Limit: limit, Offset: offset}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
