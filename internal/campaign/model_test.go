package campaign

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyString(t *testing.T) {
	assert.Equal(t, "confirmation", EventKey(TypeConfirmation).String())
	assert.Equal(t, "cancellation", EventKey(TypeCancellation).String())
	assert.Equal(t, "no_show", EventKey(TypeNoShow).String())
	assert.Equal(t, "reminder[0]", ReminderKey(0).String())
	assert.Equal(t, "reminder[2]", ReminderKey(2).String())
}

func TestParseKeyRoundTrip(t *testing.T) {
	keys := []Key{
		EventKey(TypeConfirmation),
		EventKey(TypeNoShow),
		EventKey(TypeCancellation),
		ReminderKey(0),
		ReminderKey(1),
		ReminderKey(7),
	}

	for _, k := range keys {
		parsed, err := ParseKey(k.String())
		require.NoError(t, err, k.String())
		assert.Equal(t, k, parsed)
	}
}

func TestParseKeyRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "reminder", "reminder[]", "reminder[-1]", "welcome"} {
		_, err := ParseKey(s)
		assert.ErrorIs(t, err, ErrInvalidKey, s)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())

	assert.Equal(t, "Our Clinic", cfg.ClinicName)
	assert.Equal(t, []int{10080, 1440, 120}, cfg.ReminderIntervalsMinutes)
	assert.Equal(t, []time.Duration{7 * 24 * time.Hour, 24 * time.Hour, 2 * time.Hour}, cfg.ReminderIntervals())
	assert.Equal(t, 7*24*time.Hour, cfg.LongestInterval())

	for _, typ := range []Type{TypeConfirmation, TypeReminder, TypeNoShow, TypeCancellation} {
		s := cfg.Campaign(typ)
		assert.True(t, s.Enabled, typ)
		assert.True(t, s.HasChannel(ChannelSMS), typ)
		assert.True(t, s.HasChannel(ChannelEmail), typ)
	}
}

func TestValidate(t *testing.T) {
	t.Run("enabled campaign without channels", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.NoShow.Channels = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("sms channel with empty template", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Confirmation.SMSTemplate = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("disabled campaign may be incomplete", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Confirmation.Enabled = false
		cfg.Confirmation.SMSTemplate = ""
		cfg.Confirmation.Channels = nil
		assert.NoError(t, cfg.Validate())
	})

	t.Run("reminders enabled with empty chain", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ReminderIntervalsMinutes = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("intervals must descend", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ReminderIntervalsMinutes = []int{120, 1440}
		assert.Error(t, cfg.Validate())
	})

	t.Run("intervals must be positive", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ReminderIntervalsMinutes = []int{1440, 0}
		assert.Error(t, cfg.Validate())
	})
}
