package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careloop/telehealth-scheduling/internal/metrics"
	redisclient "github.com/careloop/telehealth-scheduling/internal/redis"
	"github.com/careloop/telehealth-scheduling/internal/timezone"
)

// FetchError wraps a persistence failure for one data source so the caller
// can tell which source degraded.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SourceStatus distinguishes "no data because empty" from "no data because
// the fetch failed".
type SourceStatus struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Sources reports per-source fetch health for one snapshot.
type Sources struct {
	Rules        SourceStatus `json:"rules"`
	Exceptions   SourceStatus `json:"exceptions"`
	Appointments SourceStatus `json:"appointments"`
}

// WeekSnapshot is one immutable render cycle's output. Later cycles allocate
// fresh snapshots; nothing mutates an earlier one.
type WeekSnapshot struct {
	Generation  uint64        `json:"generation"`
	ClinicianID uuid.UUID     `json:"clinician_id"`
	Zone        string        `json:"zone"`
	WeekStart   timezone.Date `json:"week_start"`
	Days        []DayColumn   `json:"days"`
	Sources     Sources       `json:"sources"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty"`
}

// MonthDaySummary is the per-day rollup a month grid renders.
type MonthDaySummary struct {
	Day              timezone.Date `json:"day"`
	AvailableMinutes int           `json:"available_minutes"`
	BlockCount       int           `json:"block_count"`
	AppointmentCount int           `json:"appointment_count"`
	HasException     bool          `json:"has_exception"`
}

type MonthSnapshot struct {
	Generation  uint64            `json:"generation"`
	ClinicianID uuid.UUID         `json:"clinician_id"`
	Zone        string            `json:"zone"`
	Year        int               `json:"year"`
	Month       time.Month        `json:"month"`
	Days        []MonthDaySummary `json:"days"`
	Sources     Sources           `json:"sources"`
	Diagnostics []Diagnostic      `json:"diagnostics,omitempty"`
}

// CalendarService runs the fetch -> reconcile -> project -> index -> assemble
// pipeline. The three source fetches run concurrently and are joined before
// reconciliation; a failed source degrades that source only. A generation
// counter keeps superseded cycles from writing the snapshot cache.
type CalendarService struct {
	repo       Repository
	tz         *timezone.Service
	reconciler *Reconciler
	projector  *Projector
	assembler  *Assembler
	cache      *redisclient.ViewCache
	log        *zap.Logger
	metrics    *metrics.CalendarMetrics

	generation atomic.Uint64
}

func NewCalendarService(repo Repository, tz *timezone.Service, assembler *Assembler, cache *redisclient.ViewCache, log *zap.Logger, m *metrics.CalendarMetrics) *CalendarService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CalendarService{
		repo:       repo,
		tz:         tz,
		reconciler: NewReconciler(tz),
		projector:  NewProjector(tz),
		assembler:  assembler,
		cache:      cache,
		log:        log,
		metrics:    m,
	}
}

// calendarInputs is the wait-for-all join of one fetch cycle.
type calendarInputs struct {
	rules        []AvailabilityRule
	exceptions   []AvailabilityException
	appointments []Appointment
	diags        []Diagnostic
	sources      Sources
}

func (s *CalendarService) fetchInputs(ctx context.Context, clinicianID uuid.UUID, from, to timezone.Date, fromInstant, toInstant time.Time) calendarInputs {
	var (
		in calendarInputs
		wg sync.WaitGroup
		mu sync.Mutex
	)

	in.sources = Sources{
		Rules:        SourceStatus{OK: true},
		Exceptions:   SourceStatus{OK: true},
		Appointments: SourceStatus{OK: true},
	}

	wg.Add(3)

	go func() {
		defer wg.Done()
		rules, diags, err := s.repo.ListActiveRules(ctx, clinicianID)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			s.degrade(&in.sources.Rules, "rules", err)
			return
		}
		in.rules = rules
		in.diags = append(in.diags, diags...)
	}()

	go func() {
		defer wg.Done()
		exceptions, diags, err := s.repo.ListExceptions(ctx, clinicianID, from, to)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			s.degrade(&in.sources.Exceptions, "exceptions", err)
			return
		}
		in.exceptions = exceptions
		in.diags = append(in.diags, diags...)
	}()

	go func() {
		defer wg.Done()
		appointments, err := s.repo.ListAppointments(ctx, clinicianID, fromInstant, toInstant)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			s.degrade(&in.sources.Appointments, "appointments", err)
			return
		}
		in.appointments = appointments
	}()

	wg.Wait()
	return in
}

func (s *CalendarService) degrade(status *SourceStatus, source string, err error) {
	status.OK = false
	status.Error = err.Error()
	s.metrics.ObserveFetchFailure(source)
	s.log.Warn("calendar source fetch failed, rendering degraded",
		zap.String("source", source),
		zap.Error(err),
	)
}

// WeekView assembles seven days starting at weekStart. zoneCandidate is the
// viewer's requested zone; empty means the clinician's home zone.
func (s *CalendarService) WeekView(ctx context.Context, clinicianID uuid.UUID, weekStart timezone.Date, zoneCandidate string) (*WeekSnapshot, error) {
	gen := s.generation.Add(1)
	started := time.Now()

	clinician, err := s.repo.GetClinicianByID(ctx, clinicianID)
	if err != nil {
		return nil, &FetchError{Source: "clinician", Err: err}
	}

	homeZone := s.tz.EnsureValidZone(clinician.TimeZone)
	displayZone := homeZone
	if zoneCandidate != "" {
		displayZone = s.tz.EnsureValidZone(zoneCandidate)
	}

	if s.cache != nil {
		var cached WeekSnapshot
		err := s.cache.Get(ctx, clinicianID, weekStart.String(), displayZone.String(), &cached)
		if err == nil {
			s.metrics.ObserveCache(true)
			return &cached, nil
		}
		s.metrics.ObserveCache(false)
		if !errors.Is(err, redisclient.ErrCacheMiss) {
			s.log.Warn("snapshot cache read failed", zap.Error(err))
		}
	}

	days := make([]timezone.Date, 7)
	for i := range days {
		days[i] = weekStart.AddDays(i)
	}

	snapshot := s.buildWeek(ctx, gen, clinician, days, homeZone, displayZone)
	s.metrics.ObserveAssemble("week", time.Since(started).Seconds())

	if s.cache != nil && s.allSourcesOK(snapshot.Sources) {
		if s.generation.Load() != gen {
			// A newer cycle started while this one ran; its snapshot
			// must not clobber the cache.
			s.metrics.ObserveStaleDiscard()
		} else if err := s.cache.Set(ctx, clinicianID, weekStart.String(), displayZone.String(), snapshot); err != nil {
			s.log.Warn("snapshot cache write failed", zap.Error(err))
		}
	}

	return snapshot, nil
}

func (s *CalendarService) buildWeek(ctx context.Context, gen uint64, clinician *Clinician, days []timezone.Date, homeZone, displayZone *time.Location) *WeekSnapshot {
	midnight, _ := timezone.NewWallClock(0, 0)
	fromInstant := s.tz.ToAbsoluteInstant(days[0], midnight, displayZone)
	toInstant := s.tz.ToAbsoluteInstant(days[len(days)-1].AddDays(1), midnight, displayZone)

	in := s.fetchInputs(ctx, clinician.ID, days[0], days[len(days)-1], fromInstant, toInstant)

	var blocks []TimeBlock
	for _, day := range days {
		blocks = append(blocks, s.reconciler.Reconcile(day, homeZone, in.rules, in.exceptions)...)
	}

	apptBlocks, projDiags := s.projector.Project(in.appointments, displayZone, days)

	idx := NewSlotQueryIndex(days, blocks, apptBlocks)
	columns := s.assembler.Assemble(days, displayZone, idx)

	return &WeekSnapshot{
		Generation:  gen,
		ClinicianID: clinician.ID,
		Zone:        displayZone.String(),
		WeekStart:   days[0],
		Days:        columns,
		Sources:     in.sources,
		Diagnostics: append(in.diags, projDiags...),
	}
}

// MonthView rolls each day of the month up into counts the month grid needs.
func (s *CalendarService) MonthView(ctx context.Context, clinicianID uuid.UUID, year int, month time.Month, zoneCandidate string) (*MonthSnapshot, error) {
	gen := s.generation.Add(1)
	started := time.Now()

	clinician, err := s.repo.GetClinicianByID(ctx, clinicianID)
	if err != nil {
		return nil, &FetchError{Source: "clinician", Err: err}
	}

	homeZone := s.tz.EnsureValidZone(clinician.TimeZone)
	displayZone := homeZone
	if zoneCandidate != "" {
		displayZone = s.tz.EnsureValidZone(zoneCandidate)
	}

	first := timezone.NewDate(year, month, 1)
	daysInMonth := timezone.NewDate(year, month+1, 1).AddDays(-1).Day
	days := make([]timezone.Date, daysInMonth)
	for i := range days {
		days[i] = first.AddDays(i)
	}

	midnight, _ := timezone.NewWallClock(0, 0)
	fromInstant := s.tz.ToAbsoluteInstant(days[0], midnight, displayZone)
	toInstant := s.tz.ToAbsoluteInstant(days[len(days)-1].AddDays(1), midnight, displayZone)

	in := s.fetchInputs(ctx, clinicianID, days[0], days[len(days)-1], fromInstant, toInstant)

	apptBlocks, projDiags := s.projector.Project(in.appointments, displayZone, days)
	apptsByDay := make(map[timezone.Date]int, len(days))
	for _, a := range apptBlocks {
		apptsByDay[a.Day]++
	}

	summaries := make([]MonthDaySummary, 0, len(days))
	for _, day := range days {
		blocks := s.reconciler.Reconcile(day, homeZone, in.rules, in.exceptions)

		summary := MonthDaySummary{
			Day:              day,
			BlockCount:       len(blocks),
			AppointmentCount: apptsByDay[day],
		}
		for _, b := range blocks {
			summary.AvailableMinutes += int(b.End.Sub(b.Start).Minutes())
			summary.HasException = summary.HasException || b.HasException || b.HasStandalone
		}
		summaries = append(summaries, summary)
	}

	s.metrics.ObserveAssemble("month", time.Since(started).Seconds())

	return &MonthSnapshot{
		Generation:  gen,
		ClinicianID: clinicianID,
		Zone:        displayZone.String(),
		Year:        year,
		Month:       month,
		Days:        summaries,
		Sources:     in.sources,
		Diagnostics: append(in.diags, projDiags...),
	}, nil
}

func (s *CalendarService) allSourcesOK(src Sources) bool {
	return src.Rules.OK && src.Exceptions.OK && src.Appointments.OK
}

// CreateRule validates and persists a recurring rule, then drops the
// clinician's cached views.
func (s *CalendarService) CreateRule(ctx context.Context, clinicianID uuid.UUID, day Weekday, start, end timezone.WallClock) (*AvailabilityRule, error) {
	rule, err := NewAvailabilityRule(clinicianID, day, start, end)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, err
	}
	s.invalidate(ctx, clinicianID)
	return rule, nil
}

// UpdateRule replaces a rule's interval.
func (s *CalendarService) UpdateRule(ctx context.Context, clinicianID, ruleID uuid.UUID, start, end timezone.WallClock) (*AvailabilityRule, error) {
	if !start.Before(end) {
		return nil, &ValidationError{Field: "end_time", Reason: "must be after start_time"}
	}
	rule, err := s.repo.UpdateRuleTimes(ctx, ruleID, start, end)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, clinicianID)
	return rule, nil
}

// RemoveRule soft-deletes a rule.
func (s *CalendarService) RemoveRule(ctx context.Context, clinicianID, ruleID uuid.UUID) error {
	if err := s.repo.DeactivateRule(ctx, ruleID); err != nil {
		return err
	}
	s.invalidate(ctx, clinicianID)
	return nil
}

// AddException records a date-specific override (modification, deletion, or
// standalone one-off).
func (s *CalendarService) AddException(ctx context.Context, clinicianID uuid.UUID, date timezone.Date, originalRuleID *uuid.UUID, start, end *timezone.WallClock, isDeleted bool) (*AvailabilityException, error) {
	exc, err := NewAvailabilityException(clinicianID, date, originalRuleID, start, end, isDeleted)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateException(ctx, exc); err != nil {
		return nil, err
	}
	s.invalidate(ctx, clinicianID)
	return exc, nil
}

func (s *CalendarService) invalidate(ctx context.Context, clinicianID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, clinicianID); err != nil {
		s.log.Warn("snapshot cache invalidation failed", zap.Error(err))
	}
}
