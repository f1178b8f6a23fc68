package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/telehealth-scheduling/internal/timezone"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusMissed    AppointmentStatus = "missed"
)

var (
	ErrClinicianNotFound   = errors.New("clinician not found")
	ErrClientNotFound      = errors.New("client not found")
	ErrRuleNotFound        = errors.New("availability rule not found")
	ErrExceptionNotFound   = errors.New("availability exception not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Weekday is Monday-first, matching how recurring rules are authored.
// The stdlib's Sunday-first ordinal is converted exactly once, at this
// boundary.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func (w Weekday) String() string {
	if w < Monday || w > Sunday {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return weekdayNames[w]
}

// WeekdayOf converts a stdlib weekday (Sunday=0) to the Monday-first ordinal.
func WeekdayOf(d time.Weekday) Weekday {
	return Weekday((int(d) + 6) % 7)
}

// ParseWeekday accepts the English day names rows and requests carry, in any
// case.
func ParseWeekday(raw string) (Weekday, error) {
	for i, name := range weekdayNames {
		if strings.EqualFold(raw, name) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", raw)
}

type Clinician struct {
	ID        uuid.UUID
	Name      string
	TimeZone  string // IANA name or display alias; resolved through timezone.Service
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Client struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	TimeZone  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AvailabilityRule is a weekly-recurring open interval in the clinician's
/// home zone. Removal is soft: Active flips to false.
type AvailabilityRule struct {
	ID          uuid.UUID
	ClinicianID uuid.UUID
	DayOfWeek   Weekday
	StartTime   timezone.WallClock
	EndTime     timezone.WallClock
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidationError is rejected input, surfaced synchronously to the caller
// that submitted it. Malformed data never reaches reconciliation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewAvailabilityRule validates the interval at construction; this is the
// only place a start >= end rule can be rejected.
func NewAvailabilityRule(clinicianID uuid.UUID, day Weekday, start, end timezone.WallClock) (*AvailabilityRule, error) {
	if day < Monday || day > Sunday {
		return nil, &ValidationError{Field: "day_of_week", Reason: "out of range"}
	}
	if !start.Before(end) {
		return nil, &ValidationError{Field: "end_time", Reason: "must be after start_time"}
	}
	return &AvailabilityRule{
		ID:          uuid.New(),
		ClinicianID: clinicianID,
		DayOfWeek:   day,
		StartTime:   start,
		EndTime:     end,
		Active:      true,
	}, nil
}

// AvailabilityException overrides one date. Three shapes:
//   - OriginalRuleID set, IsDeleted true: the rule's occurrence is suppressed.
//   - OriginalRuleID set, times present: the occurrence is replaced.
//   - OriginalRuleID nil, times present: a standalone one-off interval.
type AvailabilityException struct {
	ID             uuid.UUID
	ClinicianID    uuid.UUID
	SpecificDate   timezone.Date
	OriginalRuleID *uuid.UUID
	StartTime      *timezone.WallClock
	EndTime        *timezone.WallClock
	IsDeleted      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewAvailabilityException validates shape at construction.
func NewAvailabilityException(clinicianID uuid.UUID, date timezone.Date, originalRuleID *uuid.UUID, start, end *timezone.WallClock, isDeleted bool) (*AvailabilityException, error) {
	if date.IsZero() {
		return nil, &ValidationError{Field: "specific_date", Reason: "required"}
	}
	if isDeleted {
		if originalRuleID == nil {
			return nil, &ValidationError{Field: "original_rule_id", Reason: "required for a deletion"}
		}
	} else {
		if start == nil || end == nil {
			return nil, &ValidationError{Field: "start_time", Reason: "both times required unless deleting"}
		}
		if !start.Before(*end) {
			return nil, &ValidationError{Field: "end_time", Reason: "must be after start_time"}
		}
	}
	return &AvailabilityException{
		ID:             uuid.New(),
		ClinicianID:    clinicianID,
		SpecificDate:   date,
		OriginalRuleID: originalRuleID,
		StartTime:      start,
		EndTime:        end,
		IsDeleted:      isDeleted,
	}, nil
}

// hasInterval reports whether the exception carries a usable replacement
// interval.
func (e *AvailabilityException) hasInterval() bool {
	return !e.IsDeleted && e.StartTime != nil && e.EndTime != nil
}

// Appointment rows are the sole source of truth for booked time; they are
// never derived from availability. Instants are stored UTC.
type Appointment struct {
	ID          uuid.UUID
	ClinicianID uuid.UUID
	ClientID    uuid.UUID
	ClientName  string
	StartAt     time.Time
	EndAt       time.Time
	Status      AppointmentStatus
	Type        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TimeBlock is a reconciled availability interval on one calendar day.
// Derived, never persisted; every reconciliation pass allocates fresh blocks.
type TimeBlock struct {
	Day           timezone.Date `json:"day"`
	Start         time.Time     `json:"start"`
	End           time.Time     `json:"end"`
	SourceIDs     []uuid.UUID   `json:"source_ids"`
	HasException  bool          `json:"has_exception"`
	HasStandalone bool          `json:"has_standalone"`
}

// AppointmentBlock projects one appointment onto one calendar day in one
// zone.
type AppointmentBlock struct {
	ID         uuid.UUID     `json:"id"`
	Day        timezone.Date `json:"day"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	ClientID   uuid.UUID     `json:"client_id"`
	ClientName string        `json:"client_name"`
	Status     string        `json:"status"`
	Type       string        `json:"type"`
}

// Diagnostic flags a record that was excluded from a pass instead of
// aborting it.
type Diagnostic struct {
	RecordID uuid.UUID `json:"record_id"`
	Source   string    `json:"source"` // "appointment", "rule", "exception"
	Detail   string    `json:"detail"`
}
