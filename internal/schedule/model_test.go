package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekdayOf(t *testing.T) {
	tests := []struct {
		std  time.Weekday
		want Weekday
	}{
		{time.Monday, Monday},
		{time.Wednesday, Wednesday},
		{time.Saturday, Saturday},
		{time.Sunday, Sunday},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WeekdayOf(tt.std), tt.std.String())
	}
}

func TestParseWeekday(t *testing.T) {
	got, err := ParseWeekday("monday")
	require.NoError(t, err)
	assert.Equal(t, Monday, got)

	got, err = ParseWeekday("SUNDAY")
	require.NoError(t, err)
	assert.Equal(t, Sunday, got)

	_, err = ParseWeekday("Someday")
	assert.Error(t, err)
}

func TestNewAvailabilityRuleValidation(t *testing.T) {
	clinician := uuid.New()

	_, err := NewAvailabilityRule(clinician, Monday, mustClock(t, "12:00"), mustClock(t, "09:00"))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "end_time", vErr.Field)

	_, err = NewAvailabilityRule(clinician, Monday, mustClock(t, "09:00"), mustClock(t, "09:00"))
	require.ErrorAs(t, err, &vErr, "zero-length interval is invalid")

	rule, err := NewAvailabilityRule(clinician, Friday, mustClock(t, "09:00"), mustClock(t, "17:00"))
	require.NoError(t, err)
	assert.True(t, rule.Active)
	assert.NotEqual(t, uuid.Nil, rule.ID)
}
