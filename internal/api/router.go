package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/careloop/telehealth-scheduling/internal/schedule"
	"github.com/careloop/telehealth-scheduling/internal/timezone"
)

// CalendarService is the read and authoring surface the calendar handlers
// need from the schedule layer.
type CalendarService interface {
	WeekView(ctx context.Context, clinicianID uuid.UUID, weekStart timezone.Date, zoneCandidate string) (*schedule.WeekSnapshot, error)
	MonthView(ctx context.Context, clinicianID uuid.UUID, year int, month time.Month, zoneCandidate string) (*schedule.MonthSnapshot, error)
	CreateRule(ctx context.Context, clinicianID uuid.UUID, day schedule.Weekday, start, end timezone.WallClock) (*schedule.AvailabilityRule, error)
	UpdateRule(ctx context.Context, clinicianID, ruleID uuid.UUID, start, end timezone.WallClock) (*schedule.AvailabilityRule, error)
	RemoveRule(ctx context.Context, clinicianID, ruleID uuid.UUID) error
	AddException(ctx context.Context, clinicianID uuid.UUID, date timezone.Date, originalRuleID *uuid.UUID, start, end *timezone.WallClock, isDeleted bool) (*schedule.AvailabilityException, error)
}

// BookingService is what the appointment handlers need from the booking
// layer.
type BookingService interface {
	Book(ctx context.Context, clinicianID, clientID uuid.UUID, startAt, endAt time.Time, apptType string) (*schedule.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error)
	Complete(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error)
}

type RouterConfig struct {
	Calendar CalendarService
	Booking  BookingService
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(httprate.LimitByIP(120, time.Minute))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	h := &handler{calendar: cfg.Calendar, booking: cfg.Booking}

	r.Route("/calendar", func(r chi.Router) {
		r.Get("/week", h.weekView)
		r.Get("/month", h.monthView)
	})

	r.Route("/availability", func(r chi.Router) {
		r.Post("/", h.createRule)
		r.Patch("/{id}", h.updateRule)
		r.Delete("/{id}", h.removeRule)
		r.Post("/exceptions", h.createException)
	})

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", h.bookAppointment)
		r.Get("/{id}", h.getAppointment)
		r.Post("/{id}/cancel", h.cancelAppointment)
		r.Post("/{id}/complete", h.completeAppointment)
	})

	return r
}
