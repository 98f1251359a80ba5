package template

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/reminder-service/internal/campaign"
	"github.com/carebridge/reminder-service/internal/records"
)

func testBindings() Bindings {
	patient := &records.Patient{FirstName: "Ada", LastName: "Nguyen"}
	provider := &records.Provider{FirstName: "Sam", LastName: "Okafor"}
	location := &records.Location{FullName: "Riverside Health Center"}

	cfg := campaign.DefaultConfig()
	cfg.ClinicName = "Riverside"
	cfg.ClinicPhone = "555-0100"

	start := time.Date(2026, time.March, 9, 14, 30, 0, 0, time.UTC)
	return NewBindings(patient, provider, location, start, cfg)
}

func TestRender(t *testing.T) {
	out, err := Render(
		"Hi {{patient_first_name}}, see {{provider_name}} on {{appointment_date}} at {{appointment_time}} ({{location_name}}). Call {{clinic_phone}}.",
		testBindings(),
	)
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada, see Sam Okafor on March 09, 2026 at 02:30 PM (Riverside Health Center). Call 555-0100.", out)
}

func TestRenderRejectsUnboundPlaceholder(t *testing.T) {
	_, err := Render("Hello {{patient_first_name}}, your {{copay_amount}} is due.", testBindings())
	require.Error(t, err)

	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, []string{"copay_amount"}, rerr.Placeholders)
}

func TestRenderReportsEachUnboundVariableOnce(t *testing.T) {
	_, err := Render("{{foo}} {{bar}} {{foo}}", testBindings())

	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, []string{"foo", "bar"}, rerr.Placeholders)
}

func TestRenderEmptyBindingValueIsNotAnError(t *testing.T) {
	b := testBindings()
	b["clinic_phone"] = ""

	out, err := Render("Call {{clinic_phone}} now", b)
	require.NoError(t, err)
	assert.Equal(t, "Call  now", out)
}

func TestNewBindingsFallbacks(t *testing.T) {
	patient := &records.Patient{FirstName: "Ada", LastName: "Nguyen"}
	cfg := campaign.DefaultConfig()
	start := time.Date(2026, time.March, 9, 9, 5, 0, 0, time.UTC)

	b := NewBindings(patient, nil, nil, start, cfg)

	assert.Equal(t, "your provider", b["provider_name"])
	assert.Equal(t, "our clinic", b["location_name"])
	assert.Equal(t, "March 09, 2026", b["appointment_date"])
	assert.Equal(t, "09:05 AM", b["appointment_time"])
	assert.Equal(t, cfg.ClinicName, b["clinic_name"])
}

func TestDefaultTemplatesRenderCleanly(t *testing.T) {
	cfg := campaign.DefaultConfig()
	b := testBindings()

	for _, typ := range []campaign.Type{campaign.TypeConfirmation, campaign.TypeReminder, campaign.TypeNoShow, campaign.TypeCancellation} {
		s := cfg.Campaign(typ)

		_, err := Render(s.SMSTemplate, b)
		assert.NoError(t, err, "%s sms", typ)

		_, err = Render(s.EmailTemplate, b)
		assert.NoError(t, err, "%s email", typ)
	}
}
