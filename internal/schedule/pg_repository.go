package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careloop/telehealth-scheduling/internal/timezone"
)

// PgClient is the slice of pgxpool.Pool the repository uses; pgxmock
// satisfies it in tests.
type PgClient interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	db PgClient
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{db: pool}
}

// NewPgRepositoryWithClient allows injecting mocks for tests.
func NewPgRepositoryWithClient(db PgClient) *PgRepository {
	return &PgRepository{db: db}
}

func (r *PgRepository) GetClinicianByID(ctx context.Context, id uuid.UUID) (*Clinician, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, time_zone, created_at, updated_at
		FROM clinicians
		WHERE id = $1
	`, id)

	var c Clinician
	err := row.Scan(&c.ID, &c.Name, &c.TimeZone, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClinicianNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListActiveRules returns the clinician's recurring rules. Rows whose stored
// wall-clock text no longer parses are excluded with a diagnostic instead of
// failing the batch.
func (r *PgRepository) ListActiveRules(ctx context.Context, clinicianID uuid.UUID) ([]AvailabilityRule, []Diagnostic, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, clinician_id, day_of_week, start_time, end_time, active, created_at, updated_at
		FROM availability_rules
		WHERE clinician_id = $1
		  AND active = true
		ORDER BY day_of_week, start_time
	`, clinicianID)
	if err != nil {
		return nil, nil, fmt.Errorf("list availability rules: %w", err)
	}
	defer rows.Close()

	var result []AvailabilityRule
	var diags []Diagnostic

	for rows.Next() {
		var (
			rule      AvailabilityRule
			dow       int
			startText string
			endText   string
		)
		if err := rows.Scan(&rule.ID, &rule.ClinicianID, &dow, &startText, &endText, &rule.Active, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, nil, err
		}

		start, sErr := timezone.ParseWallClock(startText)
		end, eErr := timezone.ParseWallClock(endText)
		if sErr != nil || eErr != nil {
			diags = append(diags, Diagnostic{
				RecordID: rule.ID,
				Source:   "rule",
				Detail:   fmt.Sprintf("malformed wall-clock interval %q-%q", startText, endText),
			})
			continue
		}

		rule.DayOfWeek = Weekday(dow)
		rule.StartTime = start
		rule.EndTime = end
		result = append(result, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return result, diags, nil
}

// ListExceptions returns the clinician's date-specific overrides inside
// [from, to].
func (r *PgRepository) ListExceptions(ctx context.Context, clinicianID uuid.UUID, from, to timezone.Date) ([]AvailabilityException, []Diagnostic, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, clinician_id, specific_date, original_rule_id, start_time, end_time, is_deleted, created_at, updated_at
		FROM availability_exceptions
		WHERE clinician_id = $1
		  AND specific_date BETWEEN $2 AND $3
		ORDER BY specific_date, created_at
	`, clinicianID, from.String(), to.String())
	if err != nil {
		return nil, nil, fmt.Errorf("list availability exceptions: %w", err)
	}
	defer rows.Close()

	var result []AvailabilityException
	var diags []Diagnostic

	for rows.Next() {
		var (
			exc       AvailabilityException
			date      time.Time
			startText *string
			endText   *string
		)
		if err := rows.Scan(&exc.ID, &exc.ClinicianID, &date, &exc.OriginalRuleID, &startText, &endText, &exc.IsDeleted, &exc.CreatedAt, &exc.UpdatedAt); err != nil {
			return nil, nil, err
		}

		exc.SpecificDate = timezone.DateOf(date)

		ok := true
		if startText != nil {
			start, err := timezone.ParseWallClock(*startText)
			if err != nil {
				ok = false
			} else {
				exc.StartTime = &start
			}
		}
		if endText != nil {
			end, err := timezone.ParseWallClock(*endText)
			if err != nil {
				ok = false
			} else {
				exc.EndTime = &end
			}
		}
		if !ok {
			diags = append(diags, Diagnostic{
				RecordID: exc.ID,
				Source:   "exception",
				Detail:   "malformed wall-clock interval",
			})
			continue
		}

		result = append(result, exc)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return result, diags, nil
}

// ListAppointments returns non-cancelled appointments overlapping
// [from, to). Instants come back as timestamptz, already UTC.
func (r *PgRepository) ListAppointments(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.id, a.clinician_id, a.client_id, c.name, a.start_at, a.end_at, a.status, a.appointment_type, a.created_at, a.updated_at
		FROM appointments a
		JOIN clients c ON c.id = a.client_id
		WHERE a.clinician_id = $1
		  AND a.status <> 'cancelled'
		  AND a.start_at < $3
		  AND a.end_at > $2
		ORDER BY a.start_at
	`, clinicianID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.ClinicianID, &a.ClientID, &a.ClientName, &a.StartAt, &a.EndAt, &a.Status, &a.Type, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) CreateRule(ctx context.Context, rule *AvailabilityRule) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO availability_rules (id, clinician_id, day_of_week, start_time, end_time, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
	`, rule.ID, rule.ClinicianID, int(rule.DayOfWeek), rule.StartTime.String(), rule.EndTime.String(), rule.Active)
	if err != nil {
		return fmt.Errorf("insert availability rule: %w", err)
	}
	return nil
}

func (r *PgRepository) UpdateRuleTimes(ctx context.Context, id uuid.UUID, start, end timezone.WallClock) (*AvailabilityRule, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE availability_rules
		SET start_time = $2,
		    end_time = $3,
		    updated_at = now()
		WHERE id = $1
		  AND active = true
		RETURNING id, clinician_id, day_of_week, active, created_at, updated_at
	`, id, start.String(), end.String())

	var rule AvailabilityRule
	var dow int
	err := row.Scan(&rule.ID, &rule.ClinicianID, &dow, &rule.Active, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}

	rule.DayOfWeek = Weekday(dow)
	rule.StartTime = start
	rule.EndTime = end
	return &rule, nil
}

func (r *PgRepository) DeactivateRule(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE availability_rules
		SET active = false,
		    updated_at = now()
		WHERE id = $1
		  AND active = true
	`, id)
	if err != nil {
		return fmt.Errorf("deactivate availability rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (r *PgRepository) CreateException(ctx context.Context, exc *AvailabilityException) error {
	var startText, endText *string
	if exc.StartTime != nil {
		s := exc.StartTime.String()
		startText = &s
	}
	if exc.EndTime != nil {
		e := exc.EndTime.String()
		endText = &e
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO availability_exceptions (id, clinician_id, specific_date, original_rule_id, start_time, end_time, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
	`, exc.ID, exc.ClinicianID, exc.SpecificDate.String(), exc.OriginalRuleID, startText, endText, exc.IsDeleted)
	if err != nil {
		return fmt.Errorf("insert availability exception: %w", err)
	}
	return nil
}
