package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/telehealth-scheduling/internal/timezone"
)

// Repository contains the DB reads and schedule-authoring writes the
// calendar needs. Appointment writes live in the booking package.
type Repository interface {
	GetClinicianByID(ctx context.Context, id uuid.UUID) (*Clinician, error)

	// Calendar inputs. The three list calls are fetched as a unit per
	// render cycle; each may fail independently.
	ListActiveRules(ctx context.Context, clinicianID uuid.UUID) ([]AvailabilityRule, []Diagnostic, error)
	ListExceptions(ctx context.Context, clinicianID uuid.UUID, from, to timezone.Date) ([]AvailabilityException, []Diagnostic, error)
	ListAppointments(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) ([]Appointment, error)

	// Availability authoring.
	CreateRule(ctx context.Context, rule *AvailabilityRule) error
	UpdateRuleTimes(ctx context.Context, id uuid.UUID, start, end timezone.WallClock) (*AvailabilityRule, error)
	DeactivateRule(ctx context.Context, id uuid.UUID) error
	CreateException(ctx context.Context, exc *AvailabilityException) error
}
