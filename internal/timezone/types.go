package timezone

import (
	"fmt"
	"time"
)

// Date is a calendar date with no zone attached. It only becomes an instant
// when combined with a wall-clock time and a location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf extracts the calendar date of t as observed in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return Date{}, &ConversionError{Value: raw, Reason: "not a YYYY-MM-DD date"}
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// AddDays returns the date n days later, normalized across month and year
// boundaries.
func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC)
	return DateOf(t)
}

// Weekday reports the day of week, using the stdlib's Sunday-first ordinal.
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return &ConversionError{Value: s, Reason: "date must be a JSON string"}
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// WallClock is a time of day with no zone attached, stored as minutes after
// midnight. The constructor is the single place malformed HH:MM text is
// rejected; everything downstream can assume a valid value.
type WallClock struct {
	minutes int
}

func NewWallClock(hour, minute int) (WallClock, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return WallClock{}, &ConversionError{
			Value:  fmt.Sprintf("%02d:%02d", hour, minute),
			Reason: "hour or minute out of range",
		}
	}
	return WallClock{minutes: hour*60 + minute}, nil
}

// ParseWallClock accepts HH:MM and HH:MM:SS (seconds are dropped, the grid is
// minute-granular).
func ParseWallClock(raw string) (WallClock, error) {
	var h, m, s int
	if _, err := fmt.Sscanf(raw, "%d:%d:%d", &h, &m, &s); err != nil {
		if _, err := fmt.Sscanf(raw, "%d:%d", &h, &m); err != nil {
			return WallClock{}, &ConversionError{Value: raw, Reason: "not an HH:MM time"}
		}
	}
	return NewWallClock(h, m)
}

func (w WallClock) Hour() int   { return w.minutes / 60 }
func (w WallClock) Minute() int { return w.minutes % 60 }

func (w WallClock) String() string {
	return fmt.Sprintf("%02d:%02d", w.Hour(), w.Minute())
}

// MinutesAfterMidnight exposes the raw ordinal for slot arithmetic.
func (w WallClock) MinutesAfterMidnight() int { return w.minutes }

// Before reports whether w reads earlier on the clock face than other.
func (w WallClock) Before(other WallClock) bool { return w.minutes < other.minutes }

func (w WallClock) Add(d time.Duration) WallClock {
	m := w.minutes + int(d.Minutes())
	if m < 0 {
		m = 0
	}
	if m > 24*60 {
		m = 24 * 60
	}
	return WallClock{minutes: m}
}

func (w WallClock) MarshalJSON() ([]byte, error) {
	return []byte(`"` + w.String() + `"`), nil
}

func (w *WallClock) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return &ConversionError{Value: s, Reason: "wall-clock time must be a JSON string"}
	}
	parsed, err := ParseWallClock(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// ConversionError marks a value that could not be interpreted as a date, time
// of day, or instant. The owning record is skipped, not the whole batch.
type ConversionError struct {
	Value  string
	Reason string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %q: %s", e.Value, e.Reason)
}
