package schedule

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/telehealth-scheduling/internal/timezone"
)

// Reconciler materializes the availability for single calendar days out of
// weekly-recurring rules and date-specific exceptions. It is pure: no I/O,
// fresh output on every call.
type Reconciler struct {
	tz *timezone.Service
}

func NewReconciler(tz *timezone.Service) *Reconciler {
	return &Reconciler{tz: tz}
}

// Reconcile produces the merged availability blocks for one day. loc is the
// clinician's home zone; rule and exception wall-clock times are anchored to
// the day in that zone.
//
// Precedence: any exception that references a rule suppresses that rule's
// occurrence on the day, whether the exception deletes or modifies it. The
// exception's own interval, if it has one, stands in for the rule.
func (r *Reconciler) Reconcile(day timezone.Date, loc *time.Location, rules []AvailabilityRule, exceptions []AvailabilityException) []TimeBlock {
	weekday := WeekdayOf(day.Weekday())

	todays := exceptionsFor(day, exceptions)

	// Every referenced rule is excluded from the base set, deleted or
	// modified alike.
	excluded := make(map[uuid.UUID]struct{}, len(todays))
	for _, e := range todays {
		if e.OriginalRuleID != nil {
			excluded[*e.OriginalRuleID] = struct{}{}
		}
	}

	type entry struct {
		id           uuid.UUID
		start, end   timezone.WallClock
		isException  bool
		isStandalone bool
	}

	var entries []entry
	for _, rule := range rules {
		if rule.DayOfWeek != weekday || !rule.Active {
			continue
		}
		if _, gone := excluded[rule.ID]; gone {
			continue
		}
		entries = append(entries, entry{id: rule.ID, start: rule.StartTime, end: rule.EndTime})
	}

	for _, e := range todays {
		if !e.hasInterval() {
			continue
		}
		entries = append(entries, entry{
			id:           e.ID,
			start:        *e.StartTime,
			end:          *e.EndTime,
			isException:  e.OriginalRuleID != nil,
			isStandalone: e.OriginalRuleID == nil,
		})
	}

	blocks := make([]TimeBlock, 0, len(entries))
	for _, en := range entries {
		blocks = append(blocks, TimeBlock{
			Day:           day,
			Start:         r.tz.ToAbsoluteInstant(day, en.start, loc),
			End:           r.tz.ToAbsoluteInstant(day, en.end, loc),
			SourceIDs:     []uuid.UUID{en.id},
			HasException:  en.isException,
			HasStandalone: en.isStandalone,
		})
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Start.Before(blocks[j].Start)
	})

	return mergeAdjacent(blocks)
}

// exceptionsFor filters to the day and drops duplicate overrides of the same
// rule; the first row seen for a (rule, date) pair is authoritative.
func exceptionsFor(day timezone.Date, exceptions []AvailabilityException) []AvailabilityException {
	seen := make(map[uuid.UUID]struct{})
	var out []AvailabilityException
	for _, e := range exceptions {
		if e.SpecificDate != day {
			continue
		}
		if e.OriginalRuleID != nil {
			if _, dup := seen[*e.OriginalRuleID]; dup {
				continue
			}
			seen[*e.OriginalRuleID] = struct{}{}
		}
		out = append(out, e)
	}
	return out
}

// mergeAdjacent collapses overlapping or touching blocks in start order.
// The later end always wins regardless of source type; exception and
// standalone markers survive the merge so display can still tag the block.
func mergeAdjacent(blocks []TimeBlock) []TimeBlock {
	if len(blocks) == 0 {
		return []TimeBlock{}
	}

	merged := []TimeBlock{blocks[0]}
	for _, b := range blocks[1:] {
		last := &merged[len(merged)-1]
		if !last.End.Before(b.Start) {
			if b.End.After(last.End) {
				last.End = b.End
			}
			last.SourceIDs = append(last.SourceIDs, b.SourceIDs...)
			last.HasException = last.HasException || b.HasException
			last.HasStandalone = last.HasStandalone || b.HasStandalone
			continue
		}
		merged = append(merged, b)
	}
	return merged
}
