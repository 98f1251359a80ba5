package records

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrProviderNotFound    = errors.New("provider not found")
	ErrLocationNotFound    = errors.New("location not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains the read-side record lookups the engine consumes.
type Repository interface {
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	GetLocationByID(ctx context.Context, id uuid.UUID) (*Location, error)

	// ListContactPoints returns all contact points of the given kind for a
	// patient, primary first, then newest first. The resolver depends on
	// this ordering being stable.
	ListContactPoints(ctx context.Context, patientID uuid.UUID, kind ContactKind) ([]ContactPoint, error)

	// ListAppointmentsStartingBetween feeds the periodic scanner's forward
	// window. Only scheduled appointments are returned.
	ListAppointmentsStartingBetween(ctx context.Context, from, to time.Time) ([]Appointment, error)
}
