package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/telehealth-scheduling/internal/config"
	redisclient "github.com/careloop/telehealth-scheduling/internal/redis"
	"github.com/careloop/telehealth-scheduling/internal/schedule"
	"github.com/careloop/telehealth-scheduling/internal/timezone"
)

type stubBookingRepo struct {
	client      *schedule.Client
	appointment *schedule.Appointment
	overlapping *schedule.Appointment

	created []*schedule.Appointment
	events  []EventLog
	updates []schedule.AppointmentStatus
	pastDue []schedule.Appointment

	updateErr error
}

func (s *stubBookingRepo) GetClientByID(ctx context.Context, id uuid.UUID) (*schedule.Client, error) {
	if s.client == nil {
		return nil, schedule.ErrClientNotFound
	}
	return s.client, nil
}

func (s *stubBookingRepo) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	if s.appointment == nil {
		return nil, schedule.ErrAppointmentNotFound
	}
	return s.appointment, nil
}

func (s *stubBookingRepo) FindOverlappingAppointment(ctx context.Context, clinicianID uuid.UUID, start, end time.Time) (*schedule.Appointment, error) {
	if s.overlapping == nil {
		return nil, schedule.ErrAppointmentNotFound
	}
	return s.overlapping, nil
}

func (s *stubBookingRepo) CreateAppointment(ctx context.Context, appt *schedule.Appointment) error {
	s.created = append(s.created, appt)
	return nil
}

func (s *stubBookingRepo) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to schedule.AppointmentStatus) (*schedule.Appointment, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.updates = append(s.updates, to)
	updated := *s.appointment
	updated.Status = to
	return &updated, nil
}

func (s *stubBookingRepo) FindPastDueScheduled(ctx context.Context, now time.Time) ([]schedule.Appointment, error) {
	return s.pastDue, nil
}

func (s *stubBookingRepo) InsertEvent(ctx context.Context, ev EventLog) error {
	s.events = append(s.events, ev)
	return nil
}

type stubScheduleRepo struct {
	clinician  *schedule.Clinician
	rules      []schedule.AvailabilityRule
	exceptions []schedule.AvailabilityException
}

func (s *stubScheduleRepo) GetClinicianByID(ctx context.Context, id uuid.UUID) (*schedule.Clinician, error) {
	return s.clinician, nil
}

func (s *stubScheduleRepo) ListActiveRules(ctx context.Context, clinicianID uuid.UUID) ([]schedule.AvailabilityRule, []schedule.Diagnostic, error) {
	return s.rules, nil, nil
}

func (s *stubScheduleRepo) ListExceptions(ctx context.Context, clinicianID uuid.UUID, from, to timezone.Date) ([]schedule.AvailabilityException, []schedule.Diagnostic, error) {
	return s.exceptions, nil, nil
}

func (s *stubScheduleRepo) ListAppointments(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) ([]schedule.Appointment, error) {
	return nil, nil
}

func (s *stubScheduleRepo) CreateRule(ctx context.Context, rule *schedule.AvailabilityRule) error {
	return nil
}

func (s *stubScheduleRepo) UpdateRuleTimes(ctx context.Context, id uuid.UUID, start, end timezone.WallClock) (*schedule.AvailabilityRule, error) {
	return nil, schedule.ErrRuleNotFound
}

func (s *stubScheduleRepo) DeactivateRule(ctx context.Context, id uuid.UUID) error { return nil }

func (s *stubScheduleRepo) CreateException(ctx context.Context, exc *schedule.AvailabilityException) error {
	return nil
}

// passLocker runs the critical section inline.
type passLocker struct{}

func (passLocker) WithBookingLock(ctx context.Context, clinicianID uuid.UUID, startAt time.Time, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// heldLocker simulates a contended lock.
type heldLocker struct{}

func (heldLocker) WithBookingLock(ctx context.Context, clinicianID uuid.UUID, startAt time.Time, fn func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

func mustClock(t *testing.T, raw string) timezone.WallClock {
	t.Helper()
	c, err := timezone.ParseWallClock(raw)
	require.NoError(t, err)
	return c
}

func newBookingFixture(t *testing.T, locker redisclient.Locker) (*Service, *stubBookingRepo, uuid.UUID) {
	t.Helper()

	clinicianID := uuid.New()
	rule, err := schedule.NewAvailabilityRule(clinicianID, schedule.Monday, mustClock(t, "09:00"), mustClock(t, "12:00"))
	require.NoError(t, err)

	schedRepo := &stubScheduleRepo{
		clinician: &schedule.Clinician{ID: clinicianID, TimeZone: "America/Chicago"},
		rules:     []schedule.AvailabilityRule{*rule},
	}
	repo := &stubBookingRepo{client: &schedule.Client{ID: uuid.New(), Name: "Dana R"}}

	cfg := config.Config{MinAdvanceNotice: 24 * time.Hour}
	svc := NewService(repo, schedRepo, timezone.NewService(time.UTC, nil), locker, nil, cfg, nil, nil)
	svc.now = func() time.Time { return time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC) }

	return svc, repo, clinicianID
}

func TestBookInsideAvailability(t *testing.T) {
	svc, repo, clinicianID := newBookingFixture(t, passLocker{})

	// 15:00Z is 10:00 in Chicago, inside the 09:00-12:00 Monday rule.
	start := time.Date(2025, time.June, 9, 15, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	appt, err := svc.Book(context.Background(), clinicianID, repo.client.ID, start, end, "intake")
	require.NoError(t, err)

	assert.Equal(t, schedule.StatusScheduled, appt.Status)
	assert.True(t, appt.StartAt.Equal(start))
	require.Len(t, repo.created, 1)
	require.Len(t, repo.events, 1)
	assert.Equal(t, EventAppointmentBooked, repo.events[0].EventType)
}

func TestBookRejectsShortNotice(t *testing.T) {
	svc, repo, clinicianID := newBookingFixture(t, passLocker{})

	// Same Monday, but "now" is only two hours before the slot.
	svc.now = func() time.Time { return time.Date(2025, time.June, 9, 13, 0, 0, 0, time.UTC) }
	start := time.Date(2025, time.June, 9, 15, 0, 0, 0, time.UTC)

	_, err := svc.Book(context.Background(), clinicianID, repo.client.ID, start, start.Add(30*time.Minute), "intake")
	var vErr *schedule.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "start_at", vErr.Field)
	assert.Empty(t, repo.created)
}

func TestBookRejectsInvertedInterval(t *testing.T) {
	svc, repo, clinicianID := newBookingFixture(t, passLocker{})
	start := time.Date(2025, time.June, 9, 15, 0, 0, 0, time.UTC)

	_, err := svc.Book(context.Background(), clinicianID, repo.client.ID, start, start, "intake")
	var vErr *schedule.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestBookOutsideAvailability(t *testing.T) {
	svc, repo, clinicianID := newBookingFixture(t, passLocker{})

	// 20:00Z is 15:00 in Chicago, outside the 09:00-12:00 rule.
	start := time.Date(2025, time.June, 9, 20, 0, 0, 0, time.UTC)

	_, err := svc.Book(context.Background(), clinicianID, repo.client.ID, start, start.Add(30*time.Minute), "intake")
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestBookConflictInsideCriticalSection(t *testing.T) {
	svc, repo, clinicianID := newBookingFixture(t, passLocker{})

	start := time.Date(2025, time.June, 9, 15, 0, 0, 0, time.UTC)
	repo.overlapping = &schedule.Appointment{ID: uuid.New(), Status: schedule.StatusScheduled}

	_, err := svc.Book(context.Background(), clinicianID, repo.client.ID, start, start.Add(30*time.Minute), "intake")
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.Empty(t, repo.created)
}

func TestBookContendedLock(t *testing.T) {
	svc, repo, clinicianID := newBookingFixture(t, heldLocker{})

	start := time.Date(2025, time.June, 9, 15, 0, 0, 0, time.UTC)
	_, err := svc.Book(context.Background(), clinicianID, repo.client.ID, start, start.Add(30*time.Minute), "intake")
	assert.ErrorIs(t, err, ErrBookingInProgress)
}

func TestBookUnknownClient(t *testing.T) {
	svc, repo, clinicianID := newBookingFixture(t, passLocker{})
	repo.client = nil

	start := time.Date(2025, time.June, 9, 15, 0, 0, 0, time.UTC)
	_, err := svc.Book(context.Background(), clinicianID, uuid.New(), start, start.Add(30*time.Minute), "intake")
	assert.ErrorIs(t, err, schedule.ErrClientNotFound)
}

func TestCancelScheduledAppointment(t *testing.T) {
	svc, repo, _ := newBookingFixture(t, passLocker{})
	repo.appointment = &schedule.Appointment{
		ID:          uuid.New(),
		ClinicianID: uuid.New(),
		Status:      schedule.StatusScheduled,
	}

	updated, err := svc.Cancel(context.Background(), repo.appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusCancelled, updated.Status)
	require.Len(t, repo.events, 1)
	assert.Equal(t, EventAppointmentCancelled, repo.events[0].EventType)
}

func TestTransitionRejectsNonScheduled(t *testing.T) {
	svc, repo, _ := newBookingFixture(t, passLocker{})
	repo.appointment = &schedule.Appointment{ID: uuid.New(), Status: schedule.StatusCompleted}

	_, err := svc.Cancel(context.Background(), repo.appointment.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = svc.Complete(context.Background(), repo.appointment.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestTransitionLostRace(t *testing.T) {
	svc, repo, _ := newBookingFixture(t, passLocker{})
	repo.appointment = &schedule.Appointment{ID: uuid.New(), Status: schedule.StatusScheduled}
	repo.updateErr = schedule.ErrAppointmentNotFound

	_, err := svc.Complete(context.Background(), repo.appointment.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestMarkMissedPastDue(t *testing.T) {
	svc, repo, _ := newBookingFixture(t, passLocker{})

	first := schedule.Appointment{ID: uuid.New(), Status: schedule.StatusScheduled}
	second := schedule.Appointment{ID: uuid.New(), Status: schedule.StatusScheduled}
	repo.pastDue = []schedule.Appointment{first, second}
	repo.appointment = &first

	marked, err := svc.MarkMissedPastDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, marked)
	assert.Equal(t, []schedule.AppointmentStatus{schedule.StatusMissed, schedule.StatusMissed}, repo.updates)
	require.Len(t, repo.events, 2)
	assert.Equal(t, EventAppointmentMissed, repo.events[0].EventType)
}

func TestBookingDayAnchoredInHomeZone(t *testing.T) {
	// 00:30Z on June 10 is still Monday evening in Chicago; the Monday rule
	// governs it (19:30 local), so a rule ending at 12:00 rejects it.
	svc, repo, clinicianID := newBookingFixture(t, passLocker{})

	start := time.Date(2025, time.June, 10, 0, 30, 0, 0, time.UTC)
	_, err := svc.Book(context.Background(), clinicianID, repo.client.ID, start, start.Add(30*time.Minute), "intake")
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}
