// Package template renders campaign message templates against a closed set
// of bindings. Unresolved placeholders reject the render outright so a
// broken template can never reach a patient.
package template

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/carebridge/reminder-service/internal/campaign"
	"github.com/carebridge/reminder-service/internal/records"
)

// Locale-fixed formats, not user-configurable.
const (
	dateFormat = "January 02, 2006"
	timeFormat = "03:04 PM"
)

// Fallback display values when the appointment lacks a linked record.
const (
	fallbackProvider = "your provider"
	fallbackLocation = "our clinic"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z_]+)\s*\}\}`)

// RenderError marks a template that referenced a variable outside the
// binding set.
type RenderError struct {
	Placeholders []string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("template references unbound variables: %s", strings.Join(e.Placeholders, ", "))
}

// Bindings is the closed variable set available to every campaign template.
type Bindings map[string]string

// NewBindings builds the variable set for one appointment. Clinic values come
// from the campaign config; provider and location fall back to generic
// display text when the appointment has none.
func NewBindings(patient *records.Patient, provider *records.Provider, location *records.Location, startTime time.Time, cfg campaign.Config) Bindings {
	providerName := fallbackProvider
	if provider != nil {
		providerName = provider.FirstName + " " + provider.LastName
	}

	locationName := fallbackLocation
	if location != nil {
		locationName = location.FullName
	}

	return Bindings{
		"patient_first_name": patient.FirstName,
		"patient_last_name":  patient.LastName,
		"provider_name":      providerName,
		"clinic_name":        cfg.ClinicName,
		"clinic_phone":       cfg.ClinicPhone,
		"appointment_date":   startTime.Format(dateFormat),
		"appointment_time":   startTime.Format(timeFormat),
		"location_name":      locationName,
	}
}

// Render expands {{variable}} placeholders in tmpl. Any placeholder not
// present in the bindings fails the render; nothing is ever emitted with a
// literal placeholder token left in it.
func Render(tmpl string, vars Bindings) (string, error) {
	result := tmpl
	for key, value := range vars {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}

	if leftover := placeholderRe.FindAllStringSubmatch(result, -1); len(leftover) > 0 {
		names := make([]string, 0, len(leftover))
		seen := make(map[string]bool, len(leftover))
		for _, m := range leftover {
			if !seen[m[1]] {
				seen[m[1]] = true
				names = append(names, m[1])
			}
		}
		return "", &RenderError{Placeholders: names}
	}

	return result, nil
}
