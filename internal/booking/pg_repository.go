package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careloop/telehealth-scheduling/internal/schedule"
)

type PgRepository struct {
	db schedule.PgClient
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{db: pool}
}

// NewPgRepositoryWithClient allows injecting mocks for tests.
func NewPgRepositoryWithClient(db schedule.PgClient) *PgRepository {
	return &PgRepository{db: db}
}

func scanAppointment(row pgx.Row) (*schedule.Appointment, error) {
	var a schedule.Appointment
	err := row.Scan(
		&a.ID,
		&a.ClinicianID,
		&a.ClientID,
		&a.StartAt,
		&a.EndAt,
		&a.Status,
		&a.Type,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, schedule.ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *PgRepository) GetClientByID(ctx context.Context, id uuid.UUID) (*schedule.Client, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, email, time_zone, created_at, updated_at
		FROM clients
		WHERE id = $1
	`, id)

	var c schedule.Client
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.TimeZone, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, schedule.ErrClientNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, clinician_id, client_id, start_at, end_at, status, appointment_type, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindOverlappingAppointment(ctx context.Context, clinicianID uuid.UUID, start, end time.Time) (*schedule.Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, clinician_id, client_id, start_at, end_at, status, appointment_type, created_at, updated_at
		FROM appointments
		WHERE clinician_id = $1
		  AND status = 'scheduled'
		  AND start_at < $3
		  AND end_at > $2
		LIMIT 1
	`, clinicianID, start, end)
	return scanAppointment(row)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, appt *schedule.Appointment) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO appointments (id, clinician_id, client_id, start_at, end_at, status, appointment_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
	`, appt.ID, appt.ClinicianID, appt.ClientID, appt.StartAt, appt.EndAt, string(appt.Status), appt.Type)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to schedule.AppointmentStatus) (*schedule.Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING id, clinician_id, client_id, start_at, end_at, status, appointment_type, created_at, updated_at
	`, id, string(to), string(from))
	return scanAppointment(row)
}

func (r *PgRepository) FindPastDueScheduled(ctx context.Context, now time.Time) ([]schedule.Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, clinician_id, client_id, start_at, end_at, status, appointment_type, created_at, updated_at
		FROM appointments
		WHERE status = 'scheduled'
		  AND end_at < $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []schedule.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
