package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/telehealth-scheduling/internal/timezone"
)

func weekOf(start timezone.Date) []timezone.Date {
	days := make([]timezone.Date, 7)
	for i := range days {
		days[i] = start.AddDays(i)
	}
	return days
}

func TestProjectUTCIntoChicago(t *testing.T) {
	proj := NewProjector(timezone.NewService(time.UTC, nil))
	loc := chicago(t)

	appt := Appointment{
		ID:          uuid.New(),
		ClinicianID: uuid.New(),
		ClientID:    uuid.New(),
		ClientName:  "Dana R",
		StartAt:     time.Date(2025, time.June, 9, 15, 0, 0, 0, time.UTC),
		EndAt:       time.Date(2025, time.June, 9, 15, 30, 0, 0, time.UTC),
		Status:      StatusScheduled,
		Type:        "intake",
	}

	blocks, diags := proj.Project([]Appointment{appt}, loc, weekOf(monday))

	require.Empty(t, diags)
	require.Len(t, blocks, 1)
	assert.Equal(t, monday, blocks[0].Day)
	assert.True(t, blocks[0].Start.Equal(time.Date(2025, time.June, 9, 10, 0, 0, 0, loc)))
	assert.True(t, blocks[0].End.Equal(time.Date(2025, time.June, 9, 10, 30, 0, 0, loc)))
	assert.Equal(t, "Dana R", blocks[0].ClientName)
}

func TestProjectLateEveningStaysOnStartDate(t *testing.T) {
	// 23:30Z on June 10 is 18:30 in Chicago on June 10, not June 11.
	proj := NewProjector(timezone.NewService(time.UTC, nil))
	loc := chicago(t)

	appt := Appointment{
		ID:      uuid.New(),
		StartAt: time.Date(2025, time.June, 10, 23, 30, 0, 0, time.UTC),
		EndAt:   time.Date(2025, time.June, 11, 0, 30, 0, 0, time.UTC),
		Status:  StatusScheduled,
	}

	blocks, diags := proj.Project([]Appointment{appt}, loc, weekOf(monday))

	require.Empty(t, diags)
	require.Len(t, blocks, 1)
	assert.Equal(t, timezone.NewDate(2025, time.June, 10), blocks[0].Day)
	assert.Equal(t, 18, blocks[0].Start.Hour())
	assert.Equal(t, 30, blocks[0].Start.Minute())
}

func TestProjectDropsOutsideVisibleDays(t *testing.T) {
	proj := NewProjector(timezone.NewService(time.UTC, nil))

	appt := Appointment{
		ID:      uuid.New(),
		StartAt: time.Date(2025, time.July, 1, 15, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2025, time.July, 1, 16, 0, 0, 0, time.UTC),
	}

	blocks, diags := proj.Project([]Appointment{appt}, chicago(t), weekOf(monday))
	assert.Empty(t, blocks)
	assert.Empty(t, diags) // adjacent-week drop is silent, not an error
}

func TestProjectMissingInstantDiagnosed(t *testing.T) {
	proj := NewProjector(timezone.NewService(time.UTC, nil))

	broken := Appointment{ID: uuid.New()}
	good := Appointment{
		ID:      uuid.New(),
		StartAt: time.Date(2025, time.June, 9, 15, 0, 0, 0, time.UTC),
		EndAt:   time.Date(2025, time.June, 9, 16, 0, 0, 0, time.UTC),
	}

	blocks, diags := proj.Project([]Appointment{broken, good}, chicago(t), weekOf(monday))

	// The malformed record is excluded, the rest of the batch survives.
	require.Len(t, blocks, 1)
	assert.Equal(t, good.ID, blocks[0].ID)
	require.Len(t, diags, 1)
	assert.Equal(t, broken.ID, diags[0].RecordID)
	assert.Equal(t, "appointment", diags[0].Source)
}

func TestProjectOneBlockPerAppointment(t *testing.T) {
	proj := NewProjector(timezone.NewService(time.UTC, nil))
	loc := chicago(t)

	// Spans local midnight; still exactly one block, on the start date.
	appt := Appointment{
		ID:      uuid.New(),
		StartAt: time.Date(2025, time.June, 10, 4, 0, 0, 0, time.UTC), // 23:00 June 9 local
		EndAt:   time.Date(2025, time.June, 10, 5, 30, 0, 0, time.UTC),
	}

	blocks, _ := proj.Project([]Appointment{appt}, loc, weekOf(monday))
	require.Len(t, blocks, 1)
	assert.Equal(t, monday, blocks[0].Day)
}
