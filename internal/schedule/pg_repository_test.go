package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListActiveRulesSkipsMalformedWallClock(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	clinicianID := uuid.New()
	goodID := uuid.New()
	badID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows([]string{"id", "clinician_id", "day_of_week", "start_time", "end_time", "active", "created_at", "updated_at"}).
		AddRow(goodID, clinicianID, 0, "09:00", "12:00", true, now, now).
		AddRow(badID, clinicianID, 0, "9am", "noon", true, now, now)

	mock.ExpectQuery("SELECT id, clinician_id, day_of_week").
		WithArgs(clinicianID).
		WillReturnRows(rows)

	repo := NewPgRepositoryWithClient(mock)
	rules, diags, err := repo.ListActiveRules(context.Background(), clinicianID)
	require.NoError(t, err)

	require.Len(t, rules, 1)
	assert.Equal(t, goodID, rules[0].ID)
	assert.Equal(t, Monday, rules[0].DayOfWeek)
	assert.Equal(t, "09:00", rules[0].StartTime.String())

	require.Len(t, diags, 1)
	assert.Equal(t, badID, diags[0].RecordID)
	assert.Equal(t, "rule", diags[0].Source)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetClinicianByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT id, name, time_zone").
		WithArgs(id).
		WillReturnError(errors.New("no rows in result set"))

	repo := NewPgRepositoryWithClient(mock)
	_, gotErr := repo.GetClinicianByID(context.Background(), id)
	assert.Error(t, gotErr)
}

func TestDeactivateRuleNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE availability_rules").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewPgRepositoryWithClient(mock)
	gotErr := repo.DeactivateRule(context.Background(), id)
	assert.ErrorIs(t, gotErr, ErrRuleNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateExceptionPersistsNullableTimes(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	clinicianID := uuid.New()
	ruleID := uuid.New()
	exc, err := NewAvailabilityException(clinicianID, monday, &ruleID, nil, nil, true)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO availability_exceptions").
		WithArgs(exc.ID, clinicianID, monday.String(), &ruleID, (*string)(nil), (*string)(nil), true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewPgRepositoryWithClient(mock)
	require.NoError(t, repo.CreateException(context.Background(), exc))
	require.NoError(t, mock.ExpectationsWereMet())
}
