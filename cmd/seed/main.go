package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careloop/telehealth-scheduling/internal/db"
)

var timeZones = []string{
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
	"Europe/London",
	"Australia/Sydney",
}

var appointmentTypes = []string{"intake", "follow-up", "therapy", "consult", "med-review"}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	clinicianIDs, err := seedClinicians(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed clinicians: %v", err)
	}
	clientIDs, err := seedClients(context.Background(), pool, 2000)
	if err != nil {
		log.Fatalf("seed clients: %v", err)
	}
	if err := seedAvailability(context.Background(), pool, clinicianIDs); err != nil {
		log.Fatalf("seed availability: %v", err)
	}
	if err := seedAppointments(context.Background(), pool, clinicianIDs, clientIDs, 5000); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedClinicians(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d clinicians", count)

	specialties := []string{
		"Psychiatry",
		"Psychology",
		"Family Therapy",
		"General Practice",
		"Pediatrics",
		"Endocrinology",
		"Dermatology",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		zone := timeZones[gofakeit.Number(0, len(timeZones)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO clinicians (id, name, specialty, time_zone, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, name, spec, zone)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, tx.Commit(ctx)
}

func seedClients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d clients", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		email := gofakeit.Email()
		zone := timeZones[gofakeit.Number(0, len(timeZones)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO clients (id, name, email, time_zone, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, name, email, zone)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, tx.Commit(ctx)
}

// seedAvailability gives each clinician a plausible weekly shape: three to
// five weekdays, one or two open intervals each, plus a handful of
// date-specific exceptions over the next month.
func seedAvailability(ctx context.Context, pool *pgxpool.Pool, clinicianIDs []uuid.UUID) error {
	log.Printf("seeding availability for %d clinicians", len(clinicianIDs))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, clinicianID := range clinicianIDs {
		days := gofakeit.Number(3, 5)
		ruleIDs := make([]uuid.UUID, 0, days)

		for day := 0; day < days; day++ {
			startHour := gofakeit.Number(7, 10)
			endHour := startHour + gofakeit.Number(4, 8)
			if endHour > 20 {
				endHour = 20
			}

			ruleID := uuid.New()
			_, err := tx.Exec(ctx, `
				INSERT INTO availability_rules (id, clinician_id, day_of_week, start_time, end_time, active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, TRUE, now(), now())
			`, ruleID, clinicianID, day,
				wallClock(startHour, 0), wallClock(endHour, 0))
			if err != nil {
				return err
			}
			ruleIDs = append(ruleIDs, ruleID)
		}

		for i := 0; i < gofakeit.Number(0, 3); i++ {
			date := time.Now().AddDate(0, 0, gofakeit.Number(1, 28))
			ruleID := ruleIDs[gofakeit.Number(0, len(ruleIDs)-1)]
			deleted := gofakeit.Bool()

			var start, end any
			if !deleted {
				h := gofakeit.Number(8, 12)
				start, end = wallClock(h, 0), wallClock(h+gofakeit.Number(2, 4), 0)
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO availability_exceptions (id, clinician_id, specific_date, original_rule_id, start_time, end_time, is_deleted, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
				ON CONFLICT DO NOTHING
			`, uuid.New(), clinicianID, date.Format("2006-01-02"), ruleID, start, end, deleted)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

func seedAppointments(ctx context.Context, pool *pgxpool.Pool, clinicianIDs, clientIDs []uuid.UUID, count int) error {
	log.Printf("seeding %d appointments", count)

	statuses := []string{"scheduled", "completed", "cancelled", "missed"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		clinicianID := clinicianIDs[gofakeit.Number(0, len(clinicianIDs)-1)]
		clientID := clientIDs[gofakeit.Number(0, len(clientIDs)-1)]

		start := time.Now().UTC().
			AddDate(0, 0, gofakeit.Number(-30, 30)).
			Truncate(time.Hour).
			Add(time.Duration(gofakeit.Number(14, 40)) * 30 * time.Minute)
		end := start.Add(time.Duration(gofakeit.Number(1, 2)) * 30 * time.Minute)

		status := "scheduled"
		if start.Before(time.Now().UTC()) {
			status = statuses[gofakeit.Number(1, len(statuses)-1)]
		}
		apptType := appointmentTypes[gofakeit.Number(0, len(appointmentTypes)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO appointments (id, clinician_id, client_id, start_at, end_at, status, appointment_type, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		`, uuid.New(), clinicianID, clientID, start, end, status, apptType)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func wallClock(hour, minute int) string {
	return time.Date(2000, 1, 1, hour, minute, 0, 0, time.UTC).Format("15:04")
}
