package records

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
	StatusFulfilled AppointmentStatus = "fulfilled"
)

// ContactKind is the kind of contact point a channel resolves against.
type ContactKind string

const (
	KindPhone ContactKind = "phone"
	KindEmail ContactKind = "email"
)

type ContactState string

const (
	ContactActive   ContactState = "active"
	ContactInactive ContactState = "inactive"
)

type Patient struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Provider struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Location struct {
	ID       uuid.UUID
	FullName string
	Phone    *string
}

type Appointment struct {
	ID         uuid.UUID
	PatientID  uuid.UUID
	ProviderID uuid.UUID
	LocationID *uuid.UUID
	StartTime  time.Time
	Status     AppointmentStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ContactPoint is an externally owned patient contact record; this service
// only ever reads them.
type ContactPoint struct {
	ID         uuid.UUID
	PatientID  uuid.UUID
	Kind       ContactKind
	Address    string
	Primary    bool
	HasConsent bool
	OptedOut   bool
	State      ContactState
	CreatedAt  time.Time
}

// Eligible reports whether the contact point may receive messages.
func (c ContactPoint) Eligible() bool {
	return c.State == ContactActive && c.HasConsent && !c.OptedOut
}
