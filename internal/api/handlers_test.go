package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/reminder-service/internal/campaign"
	"github.com/carebridge/reminder-service/internal/history"
	"github.com/carebridge/reminder-service/internal/records"
)

// fakeEvents records which engine entry point each endpoint hit.
type fakeEvents struct {
	created  []uuid.UUID
	canceled []uuid.UUID
	noShowed []uuid.UUID
	err      error
}

func (f *fakeEvents) AppointmentCreated(_ context.Context, id uuid.UUID) error {
	f.created = append(f.created, id)
	return f.err
}

func (f *fakeEvents) AppointmentCanceled(_ context.Context, id uuid.UUID) error {
	f.canceled = append(f.canceled, id)
	return f.err
}

func (f *fakeEvents) AppointmentNoShowed(_ context.Context, id uuid.UUID) error {
	f.noShowed = append(f.noShowed, id)
	return f.err
}

// fakeConfigs stores one config in memory with the Put-side validation the
// real store applies.
type fakeConfigs struct {
	cfg campaign.Config
}

func (f *fakeConfigs) Get(context.Context) (campaign.Config, error) {
	return f.cfg, nil
}

func (f *fakeConfigs) Put(_ context.Context, cfg campaign.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %s", campaign.ErrInvalidConfig, err)
	}
	f.cfg = cfg
	return nil
}

type testServer struct {
	events  *fakeEvents
	configs *fakeConfigs
	hist    *history.MemoryLog
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	s := &testServer{
		events:  &fakeEvents{},
		configs: &fakeConfigs{cfg: campaign.DefaultConfig()},
		hist:    history.NewMemoryLog(),
	}
	s.handler = NewRouter(RouterConfig{
		Events:  s.events,
		Configs: s.configs,
		History: s.hist,
		Env:     "test",
		Version: "test",
	})
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestLiveness(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health/live", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestGetConfigReturnsEffectiveConfig(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/admin/config", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var cfg campaign.Config
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.True(t, cfg.Confirmation.Enabled)
	assert.Equal(t, []int{10080, 1440, 120}, cfg.ReminderIntervalsMinutes)
}

func TestPutConfigRoundTrips(t *testing.T) {
	s := newTestServer(t)

	cfg := campaign.DefaultConfig()
	cfg.ClinicName = "Riverside Health Center"
	cfg.ReminderIntervalsMinutes = []int{1440, 60}
	body, err := json.Marshal(cfg)
	require.NoError(t, err)

	rec := s.do(t, http.MethodPut, "/admin/config", string(body))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/admin/config", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got campaign.Config
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Riverside Health Center", got.ClinicName)
	assert.Equal(t, []int{1440, 60}, got.ReminderIntervalsMinutes)
}

func TestPutConfigRejectsInvalid(t *testing.T) {
	s := newTestServer(t)

	cfg := campaign.DefaultConfig()
	cfg.ReminderIntervalsMinutes = []int{60, 1440} // ascending

	body, err := json.Marshal(cfg)
	require.NoError(t, err)

	rec := s.do(t, http.MethodPut, "/admin/config", string(body))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_config", resp.Error)

	// The stored config is untouched.
	assert.Equal(t, []int{10080, 1440, 120}, s.configs.cfg.ReminderIntervalsMinutes)
}

func TestPutConfigRejectsMalformedBody(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/admin/config", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppointmentEventEndpoints(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New()
	body := fmt.Sprintf(`{"appointment_id":%q}`, id)

	cases := []struct {
		path     string
		campaign string
		hits     func() []uuid.UUID
	}{
		{"/events/appointment-created", "confirmation", func() []uuid.UUID { return s.events.created }},
		{"/events/appointment-canceled", "cancellation", func() []uuid.UUID { return s.events.canceled }},
		{"/events/appointment-no-showed", "no_show", func() []uuid.UUID { return s.events.noShowed }},
	}

	for _, tc := range cases {
		t.Run(tc.campaign, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tc.path, body)
			require.Equal(t, http.StatusAccepted, rec.Code)

			var resp EventAcceptedResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, id, resp.AppointmentID)
			assert.Equal(t, tc.campaign, resp.Campaign)

			require.Len(t, tc.hits(), 1)
			assert.Equal(t, id, tc.hits()[0])
		})
	}
}

func TestAppointmentEventRejectsBadID(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/events/appointment-created", `{"appointment_id":"not-a-uuid"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, s.events.created)
}

func TestAppointmentEventUnknownAppointment(t *testing.T) {
	s := newTestServer(t)
	s.events.err = records.ErrAppointmentNotFound

	body := fmt.Sprintf(`{"appointment_id":%q}`, uuid.New())
	rec := s.do(t, http.MethodPost, "/events/appointment-created", body)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "appointment_not_found", resp.Error)
}

func TestGlobalHistoryFiltersAndPages(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.hist.Append(ctx, history.Entry{
			PatientID:   uuid.New(),
			CampaignKey: "reminder[0]",
			Channel:     campaign.ChannelSMS,
			Status:      history.StatusDelivered,
		})
	}
	s.hist.Append(ctx, history.Entry{
		PatientID:   uuid.New(),
		CampaignKey: "confirmation",
		Channel:     campaign.ChannelEmail,
		Status:      history.StatusFailed,
	})

	rec := s.do(t, http.MethodGet, "/admin/history?campaign=reminder[0]&channel=sms&limit=3", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page HistoryPageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Entries, 3)
	assert.Equal(t, 3, page.Limit)

	rec = s.do(t, http.MethodGet, "/admin/history?status=failed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "confirmation", page.Entries[0].CampaignKey)
}

func TestPatientHistory(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	pid := uuid.New()

	s.hist.Append(ctx, history.Entry{PatientID: pid, CampaignKey: "confirmation", Status: history.StatusDelivered})
	s.hist.Append(ctx, history.Entry{PatientID: uuid.New(), CampaignKey: "confirmation", Status: history.StatusDelivered})

	rec := s.do(t, http.MethodGet, "/patients/"+pid.String()+"/history", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page HistoryPageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Entries, 1)
	assert.Equal(t, pid, page.Entries[0].PatientID)
}

func TestPatientHistoryRejectsBadID(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/patients/xyz/history", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
