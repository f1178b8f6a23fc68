package timezone

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// displayNameAliases maps the human-readable zone labels that show up in
// clinician and client profile data to real IANA identifiers.
var displayNameAliases = map[string]string{
	"eastern time (et)":  "America/New_York",
	"eastern time":       "America/New_York",
	"et":                 "America/New_York",
	"central time (ct)":  "America/Chicago",
	"central time":       "America/Chicago",
	"ct":                 "America/Chicago",
	"mountain time (mt)": "America/Denver",
	"mountain time":      "America/Denver",
	"mt":                 "America/Denver",
	"pacific time (pt)":  "America/Los_Angeles",
	"pacific time":       "America/Los_Angeles",
	"pt":                 "America/Los_Angeles",
	"alaska time (akt)":  "America/Anchorage",
	"alaska time":        "America/Anchorage",
	"hawaii time (ht)":   "Pacific/Honolulu",
	"hawaii time":        "Pacific/Honolulu",
	"arizona time":       "America/Phoenix",
}

// Service converts between stored UTC instants and wall-clock times in an
// arbitrary zone. One instance is constructed at startup and passed to the
// reconciler, projector, and handlers; there is no package-level state beyond
// the alias table.
type Service struct {
	defaultZone *time.Location
	log         *zap.Logger

	warnedMu sync.Mutex
	warned   map[string]struct{}
}

func NewService(defaultZone *time.Location, log *zap.Logger) *Service {
	if defaultZone == nil {
		defaultZone = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		defaultZone: defaultZone,
		log:         log,
		warned:      make(map[string]struct{}),
	}
}

// EnsureValidZone maps any input to a usable location: a resolvable IANA name
// is used as-is, a known display-name alias is translated, and everything
// else falls back to the configured default. It never fails; unresolvable
// candidates are logged once each so bad profile data stays discoverable.
func (s *Service) EnsureValidZone(candidate string) *time.Location {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return s.defaultZone
	}

	if loc, err := time.LoadLocation(trimmed); err == nil {
		return loc
	}

	if iana, ok := displayNameAliases[strings.ToLower(trimmed)]; ok {
		if loc, err := time.LoadLocation(iana); err == nil {
			return loc
		}
	}

	s.warnOnce(trimmed)
	return s.defaultZone
}

func (s *Service) warnOnce(candidate string) {
	s.warnedMu.Lock()
	defer s.warnedMu.Unlock()
	if _, seen := s.warned[candidate]; seen {
		return
	}
	s.warned[candidate] = struct{}{}
	s.log.Warn("unresolvable time zone, using default",
		zap.String("candidate", candidate),
		zap.String("default", s.defaultZone.String()),
	)
}

// ToAbsoluteInstant anchors a wall-clock time to a calendar date in loc and
// returns the instant. DST handling is time.Date's: a time inside a
// spring-forward gap is shifted past the gap, a time repeated in a fall-back
// fold resolves to the earlier offset.
func (s *Service) ToAbsoluteInstant(day Date, clock WallClock, loc *time.Location) time.Time {
	if loc == nil {
		loc = s.defaultZone
	}
	return time.Date(day.Year, day.Month, day.Day, clock.Hour(), clock.Minute(), 0, 0, loc)
}

// FromAbsoluteInstant splits an instant into the calendar date and wall-clock
// time observed in loc. Inverse of ToAbsoluteInstant away from DST
// discontinuities.
func (s *Service) FromAbsoluteInstant(t time.Time, loc *time.Location) (Date, WallClock) {
	if loc == nil {
		loc = s.defaultZone
	}
	local := t.In(loc)
	clock, _ := NewWallClock(local.Hour(), local.Minute())
	return DateOf(local), clock
}

// ParseInstant reads a stored UTC timestamp. Accepts RFC3339 and the naive
// `2006-01-02T15:04:05` form some historical rows carry (treated as UTC).
func (s *Service) ParseInstant(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, &ConversionError{Value: raw, Reason: "not an ISO-8601 instant"}
}

// FormatInstant renders t in loc with a Go reference layout. Display only;
// callers that fail to convert should show their raw value instead.
func (s *Service) FormatInstant(t time.Time, layout string, loc *time.Location) string {
	if loc == nil {
		loc = s.defaultZone
	}
	return t.In(loc).Format(layout)
}

// FormatWallClock renders a zone-naive time of day with a Go reference
// layout, e.g. "3:04 PM".
func (s *Service) FormatWallClock(clock WallClock, layout string) string {
	ref := time.Date(2000, time.January, 1, clock.Hour(), clock.Minute(), 0, 0, time.UTC)
	return ref.Format(layout)
}

// DefaultZone exposes the configured fallback zone.
func (s *Service) DefaultZone() *time.Location {
	return s.defaultZone
}
