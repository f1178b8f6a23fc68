package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/telehealth-scheduling/internal/schedule"
)

// EventLog is an append-only audit row for appointment lifecycle events.
type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// Repository contains the appointment writes and the reads the booking flow
// needs. Calendar reads live in the schedule package.
type Repository interface {
	GetClientByID(ctx context.Context, id uuid.UUID) (*schedule.Client, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error)

	// Conflict check inside the booking critical section.
	FindOverlappingAppointment(ctx context.Context, clinicianID uuid.UUID, start, end time.Time) (*schedule.Appointment, error)

	CreateAppointment(ctx context.Context, appt *schedule.Appointment) error
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to schedule.AppointmentStatus) (*schedule.Appointment, error)

	// Status worker.
	FindPastDueScheduled(ctx context.Context, now time.Time) ([]schedule.Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
