package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotQueryIndexPointQueries(t *testing.T) {
	loc := chicago(t)
	days := weekOf(monday)

	block := TimeBlock{
		Day:       monday,
		Start:     time.Date(2025, time.June, 9, 10, 0, 0, 0, loc),
		End:       time.Date(2025, time.June, 9, 11, 0, 0, 0, loc),
		SourceIDs: []uuid.UUID{uuid.New()},
	}
	appt := AppointmentBlock{
		ID:    uuid.New(),
		Day:   monday,
		Start: time.Date(2025, time.June, 9, 10, 0, 0, 0, loc),
		End:   time.Date(2025, time.June, 9, 10, 30, 0, 0, loc),
	}

	idx := NewSlotQueryIndex(days, []TimeBlock{block}, []AppointmentBlock{appt})

	at10 := time.Date(2025, time.June, 9, 10, 0, 0, 0, loc)
	at1030 := time.Date(2025, time.June, 9, 10, 30, 0, 0, loc)
	at11 := time.Date(2025, time.June, 9, 11, 0, 0, 0, loc)

	assert.True(t, idx.IsAvailable(monday, at10))
	assert.True(t, idx.IsAvailable(monday, at1030))
	// End boundary is exclusive.
	assert.False(t, idx.IsAvailable(monday, at11))

	require.NotNil(t, idx.BlockAt(monday, at10))
	assert.Nil(t, idx.BlockAt(monday.AddDays(1), at10))

	// Appointment covers only its half hour.
	gotAppt := idx.AppointmentAt(monday, at10)
	require.NotNil(t, gotAppt)
	assert.Equal(t, appt.ID, gotAppt.ID)
	assert.Nil(t, idx.AppointmentAt(monday, at1030))
}

func TestSlotQueryIndexIgnoresBlocksOutsideVisibleDays(t *testing.T) {
	loc := chicago(t)
	outside := monday.AddDays(30)

	block := TimeBlock{
		Day:   outside,
		Start: time.Date(2025, time.July, 9, 10, 0, 0, 0, loc),
		End:   time.Date(2025, time.July, 9, 11, 0, 0, 0, loc),
	}

	idx := NewSlotQueryIndex(weekOf(monday), []TimeBlock{block}, nil)
	assert.Nil(t, idx.BlockAt(outside, block.Start))
	assert.Empty(t, idx.BlocksOn(outside))
}

func TestSlotQueryIndexDayAccessors(t *testing.T) {
	loc := chicago(t)
	days := weekOf(monday)

	blocks := []TimeBlock{
		{Day: monday, Start: time.Date(2025, time.June, 9, 9, 0, 0, 0, loc), End: time.Date(2025, time.June, 9, 12, 0, 0, 0, loc)},
		{Day: monday.AddDays(1), Start: time.Date(2025, time.June, 10, 9, 0, 0, 0, loc), End: time.Date(2025, time.June, 10, 12, 0, 0, 0, loc)},
	}
	appts := []AppointmentBlock{
		{ID: uuid.New(), Day: monday, Start: time.Date(2025, time.June, 9, 9, 0, 0, 0, loc), End: time.Date(2025, time.June, 9, 9, 30, 0, 0, loc)},
	}

	idx := NewSlotQueryIndex(days, blocks, appts)

	assert.Len(t, idx.BlocksOn(monday), 1)
	assert.Len(t, idx.BlocksOn(monday.AddDays(1)), 1)
	assert.Len(t, idx.AppointmentsOn(monday), 1)
	assert.Empty(t, idx.AppointmentsOn(monday.AddDays(1)))
}
