package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careloop/telehealth-scheduling/internal/config"
	"github.com/careloop/telehealth-scheduling/internal/metrics"
	redisclient "github.com/careloop/telehealth-scheduling/internal/redis"
	"github.com/careloop/telehealth-scheduling/internal/schedule"
	"github.com/careloop/telehealth-scheduling/internal/timezone"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentMissed    = "APPOINTMENT_MISSED"
)

var (
	ErrSlotTaken               = errors.New("clinician already has an appointment in this interval")
	ErrSlotUnavailable         = errors.New("requested interval is outside the clinician's availability")
	ErrBookingInProgress       = errors.New("interval is currently being booked, please retry")
	ErrInvalidStatusTransition = errors.New("invalid appointment status transition")
)

// Service books and transitions appointments. Appointments are immutable
// after creation except for the status column: scheduled moves to completed,
// cancelled, or missed, nothing else.
type Service struct {
	repo      Repository
	schedRepo schedule.Repository
	tz        *timezone.Service
	locker    redisclient.Locker
	cache     *redisclient.ViewCache
	cfg       config.Config
	log       *zap.Logger
	metrics   *metrics.BookingMetrics

	now func() time.Time
}

func NewService(repo Repository, schedRepo schedule.Repository, tz *timezone.Service, locker redisclient.Locker, cache *redisclient.ViewCache, cfg config.Config, log *zap.Logger, m *metrics.BookingMetrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		schedRepo: schedRepo,
		tz:        tz,
		locker:    locker,
		cache:     cache,
		cfg:       cfg,
		log:       log,
		metrics:   m,
		now:       time.Now,
	}
}

// Book reserves an interval for a client. The availability check and
// conflict check both run; a distributed lock keyed by clinician+start keeps
// two concurrent requests for the same opening from both inserting.
func (s *Service) Book(ctx context.Context, clinicianID, clientID uuid.UUID, startAt, endAt time.Time, apptType string) (*schedule.Appointment, error) {
	if !endAt.After(startAt) {
		s.metrics.ObserveOutcome("invalid")
		return nil, &schedule.ValidationError{Field: "end_at", Reason: "must be after start_at"}
	}
	if startAt.Before(s.now().Add(s.cfg.MinAdvanceNotice)) {
		s.metrics.ObserveOutcome("too_soon")
		return nil, &schedule.ValidationError{
			Field:  "start_at",
			Reason: fmt.Sprintf("bookings need at least %s notice", s.cfg.MinAdvanceNotice),
		}
	}

	if _, err := s.repo.GetClientByID(ctx, clientID); err != nil {
		if errors.Is(err, schedule.ErrClientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load client: %w", err)
	}

	if err := s.checkAvailability(ctx, clinicianID, startAt, endAt); err != nil {
		if errors.Is(err, ErrSlotUnavailable) {
			s.metrics.ObserveOutcome("unavailable")
		}
		return nil, err
	}

	var created *schedule.Appointment

	err := s.locker.WithBookingLock(ctx, clinicianID, startAt, func(lockCtx context.Context) error {
		existing, err := s.repo.FindOverlappingAppointment(lockCtx, clinicianID, startAt, endAt)
		if err != nil && !errors.Is(err, schedule.ErrAppointmentNotFound) {
			return fmt.Errorf("check overlapping appointment: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		appt := &schedule.Appointment{
			ID:          uuid.New(),
			ClinicianID: clinicianID,
			ClientID:    clientID,
			StartAt:     startAt.UTC(),
			EndAt:       endAt.UTC(),
			Status:      schedule.StatusScheduled,
			Type:        apptType,
		}
		if err := s.repo.CreateAppointment(lockCtx, appt); err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt
		s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
			"clinician_id": clinicianID.String(),
			"client_id":    clientID.String(),
			"start_at":     appt.StartAt,
			"type":         apptType,
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			s.metrics.ObserveOutcome("contended")
			return nil, ErrBookingInProgress
		}
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.ObserveOutcome("conflict")
		}
		return nil, err
	}

	s.metrics.ObserveOutcome("booked")
	s.invalidateViews(ctx, clinicianID)
	return created, nil
}

// checkAvailability reconciles the clinician's availability for the target
// day in their home zone and requires the requested interval to sit inside
// one merged block.
func (s *Service) checkAvailability(ctx context.Context, clinicianID uuid.UUID, startAt, endAt time.Time) error {
	clinician, err := s.schedRepo.GetClinicianByID(ctx, clinicianID)
	if err != nil {
		return fmt.Errorf("load clinician: %w", err)
	}
	homeZone := s.tz.EnsureValidZone(clinician.TimeZone)
	day := timezone.DateOf(startAt.In(homeZone))

	rules, _, err := s.schedRepo.ListActiveRules(ctx, clinicianID)
	if err != nil {
		return fmt.Errorf("load availability rules: %w", err)
	}
	exceptions, _, err := s.schedRepo.ListExceptions(ctx, clinicianID, day, day)
	if err != nil {
		return fmt.Errorf("load availability exceptions: %w", err)
	}

	blocks := schedule.NewReconciler(s.tz).Reconcile(day, homeZone, rules, exceptions)
	for _, b := range blocks {
		if !startAt.Before(b.Start) && !endAt.After(b.End) {
			return nil
		}
	}
	return ErrSlotUnavailable
}

// Get loads a single appointment by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

// Cancel moves a scheduled appointment to cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	return s.transition(ctx, id, schedule.StatusCancelled, EventAppointmentCancelled)
}

// Complete moves a scheduled appointment to completed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	return s.transition(ctx, id, schedule.StatusCompleted, EventAppointmentCompleted)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to schedule.AppointmentStatus, eventType string) (*schedule.Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status != schedule.StatusScheduled {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, schedule.StatusScheduled, to)
	if err != nil {
		if errors.Is(err, schedule.ErrAppointmentNotFound) {
			// Lost a race with another transition.
			return nil, ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	s.logEvent(ctx, updated.ID, eventType, map[string]any{})
	s.invalidateViews(ctx, updated.ClinicianID)
	return updated, nil
}

// MarkMissedPastDue is called periodically by the status worker; scheduled
// appointments whose end instant has passed become missed.
func (s *Service) MarkMissedPastDue(ctx context.Context) (int, error) {
	pastDue, err := s.repo.FindPastDueScheduled(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("find past-due appointments: %w", err)
	}

	var marked int
	for _, appt := range pastDue {
		_, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, schedule.StatusScheduled, schedule.StatusMissed)
		if err != nil {
			if errors.Is(err, schedule.ErrAppointmentNotFound) {
				continue
			}
			s.log.Warn("failed to mark appointment missed",
				zap.String("appointment_id", appt.ID.String()),
				zap.Error(err),
			)
			continue
		}
		marked++
		s.logEvent(ctx, appt.ID, EventAppointmentMissed, map[string]any{
			"reason": "worker",
		})
	}

	return marked, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("failed to marshal event payload", zap.String("event_type", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Warn("failed to insert event log",
			zap.String("event_type", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) invalidateViews(ctx context.Context, clinicianID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, clinicianID); err != nil {
		s.log.Warn("calendar cache invalidation failed", zap.Error(err))
	}
}
