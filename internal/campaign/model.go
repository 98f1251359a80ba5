package campaign

import (
	"errors"
	"fmt"
	"time"
)

// Type identifies a campaign category tied to an appointment lifecycle event.
type Type string

const (
	TypeConfirmation Type = "confirmation"
	TypeReminder     Type = "reminder"
	TypeNoShow       Type = "no_show"
	TypeCancellation Type = "cancellation"
)

// Channel is a delivery medium with its own contact resolution and provider.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

var ErrInvalidKey = errors.New("invalid campaign key")

// Key identifies one claimable send per appointment: a campaign type plus,
// for reminders, the position in the configured interval chain. Interval
// indices are positional at send time; editing the chain does not remap
// already-claimed keys.
type Key struct {
	Type     Type
	Interval int // chain position for reminders, -1 otherwise
}

func EventKey(t Type) Key {
	return Key{Type: t, Interval: -1}
}

func ReminderKey(interval int) Key {
	return Key{Type: TypeReminder, Interval: interval}
}

func (k Key) String() string {
	if k.Type == TypeReminder && k.Interval >= 0 {
		return fmt.Sprintf("%s[%d]", k.Type, k.Interval)
	}
	return string(k.Type)
}

// ParseKey parses the string form produced by Key.String.
func ParseKey(s string) (Key, error) {
	switch Type(s) {
	case TypeConfirmation, TypeNoShow, TypeCancellation:
		return EventKey(Type(s)), nil
	case TypeReminder:
		return Key{}, fmt.Errorf("%w: reminder key needs an interval index", ErrInvalidKey)
	}

	var idx int
	if n, err := fmt.Sscanf(s, "reminder[%d]", &idx); err == nil && n == 1 && idx >= 0 {
		return ReminderKey(idx), nil
	}
	return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
}

// Settings holds the per-campaign knobs an admin can edit.
type Settings struct {
	Enabled       bool      `json:"enabled"`
	Channels      []Channel `json:"channels"`
	SMSTemplate   string    `json:"sms_template"`
	EmailTemplate string    `json:"email_template"`
}

// HasChannel reports whether the campaign is configured to use ch.
func (s Settings) HasChannel(ch Channel) bool {
	for _, c := range s.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// Config is the full campaign configuration, written as one unit by the
// admin surface and read as a snapshot by every trigger evaluation.
// Reminder intervals are minutes before the appointment start, longest first.
type Config struct {
	ClinicName  string `json:"clinic_name"`
	ClinicPhone string `json:"clinic_phone"`

	Confirmation Settings `json:"confirmation"`
	Reminder     Settings `json:"reminder"`
	NoShow       Settings `json:"no_show"`
	Cancellation Settings `json:"cancellation"`

	ReminderIntervalsMinutes []int `json:"reminder_intervals"`
}

// Campaign returns the settings block for the given type.
func (c Config) Campaign(t Type) Settings {
	switch t {
	case TypeConfirmation:
		return c.Confirmation
	case TypeReminder:
		return c.Reminder
	case TypeNoShow:
		return c.NoShow
	case TypeCancellation:
		return c.Cancellation
	}
	return Settings{}
}

// ReminderIntervals returns the interval chain as durations, in chain order.
func (c Config) ReminderIntervals() []time.Duration {
	out := make([]time.Duration, 0, len(c.ReminderIntervalsMinutes))
	for _, m := range c.ReminderIntervalsMinutes {
		out = append(out, time.Duration(m)*time.Minute)
	}
	return out
}

// LongestInterval returns the largest reminder interval, or zero when the
// chain is empty. Used to size the scanner's forward window.
func (c Config) LongestInterval() time.Duration {
	var max time.Duration
	for _, d := range c.ReminderIntervals() {
		if d > max {
			max = d
		}
	}
	return max
}

// EmailSubject returns the fixed subject line for a campaign type.
func EmailSubject(t Type) string {
	switch t {
	case TypeConfirmation:
		return "Appointment Confirmation"
	case TypeReminder:
		return "Appointment Reminder"
	case TypeNoShow:
		return "We Missed You"
	case TypeCancellation:
		return "Appointment Cancelled"
	}
	return "Appointment Notification"
}

// Validate checks an admin-submitted config before it replaces the stored one.
func (c Config) Validate() error {
	for _, t := range []Type{TypeConfirmation, TypeReminder, TypeNoShow, TypeCancellation} {
		s := c.Campaign(t)
		if !s.Enabled {
			continue
		}
		if len(s.Channels) == 0 {
			return fmt.Errorf("campaign %s: enabled with no channels", t)
		}
		for _, ch := range s.Channels {
			switch ch {
			case ChannelSMS:
				if s.SMSTemplate == "" {
					return fmt.Errorf("campaign %s: sms channel with empty template", t)
				}
			case ChannelEmail:
				if s.EmailTemplate == "" {
					return fmt.Errorf("campaign %s: email channel with empty template", t)
				}
			default:
				return fmt.Errorf("campaign %s: unknown channel %q", t, ch)
			}
		}
	}

	if c.Reminder.Enabled {
		if len(c.ReminderIntervalsMinutes) == 0 {
			return errors.New("reminders enabled with empty interval chain")
		}
		prev := 0
		for i, m := range c.ReminderIntervalsMinutes {
			if m <= 0 {
				return fmt.Errorf("reminder interval %d: must be positive minutes, got %d", i, m)
			}
			if i > 0 && m >= prev {
				return fmt.Errorf("reminder intervals must be strictly descending, got %d after %d", m, prev)
			}
			prev = m
		}
	}

	return nil
}

// DefaultConfig returns the stock configuration used until an admin writes
// one, and again whenever the stored config has expired.
func DefaultConfig() Config {
	return Config{
		ClinicName:  "Our Clinic",
		ClinicPhone: "",

		Confirmation: Settings{
			Enabled:  true,
			Channels: []Channel{ChannelSMS, ChannelEmail},
			SMSTemplate: "Hi {{patient_first_name}}, your appointment with {{provider_name}} at " +
				"{{clinic_name}} is confirmed for {{appointment_date}} at {{appointment_time}}. " +
				"Call {{clinic_phone}} to reschedule.",
			EmailTemplate: "<html><body>" +
				"<h2>Appointment Confirmation</h2>" +
				"<p>Hi {{patient_first_name}},</p>" +
				"<p>Your appointment with {{provider_name}} at {{clinic_name}} is confirmed for " +
				"{{appointment_date}} at {{appointment_time}}.</p>" +
				"<p>Call {{clinic_phone}} to reschedule.</p>" +
				"</body></html>",
		},

		Reminder: Settings{
			Enabled:  true,
			Channels: []Channel{ChannelSMS, ChannelEmail},
			SMSTemplate: "Reminder: You have an appointment with {{provider_name}} on {{appointment_date}} " +
				"at {{appointment_time}} at {{clinic_name}}. Reply STOP to opt out.",
			EmailTemplate: "<html><body>" +
				"<h2>Appointment Reminder</h2>" +
				"<p>You have an appointment with {{provider_name}} on {{appointment_date}} " +
				"at {{appointment_time}} at {{clinic_name}}.</p>" +
				"</body></html>",
		},

		NoShow: Settings{
			Enabled:  true,
			Channels: []Channel{ChannelSMS, ChannelEmail},
			SMSTemplate: "We missed you today at {{clinic_name}}. Please call {{clinic_phone}} to " +
				"reschedule your appointment with {{provider_name}}.",
			EmailTemplate: "<html><body>" +
				"<h2>We Missed You</h2>" +
				"<p>We missed you today at {{clinic_name}}.</p>" +
				"<p>Please call {{clinic_phone}} to reschedule your appointment with {{provider_name}}.</p>" +
				"</body></html>",
		},

		Cancellation: Settings{
			Enabled:  true,
			Channels: []Channel{ChannelSMS, ChannelEmail},
			SMSTemplate: "Your appointment with {{provider_name}} on {{appointment_date}} at " +
				"{{appointment_time}} has been cancelled. Call {{clinic_phone}} to rebook.",
			EmailTemplate: "<html><body>" +
				"<h2>Appointment Cancelled</h2>" +
				"<p>Your appointment with {{provider_name}} on {{appointment_date}} at " +
				"{{appointment_time}} has been cancelled.</p>" +
				"<p>Call {{clinic_phone}} to rebook.</p>" +
				"</body></html>",
		},

		// 7 days, 24 hours, 2 hours
		ReminderIntervalsMinutes: []int{10080, 1440, 120},
	}
}
