package schedule

import (
	"time"

	"github.com/careloop/telehealth-scheduling/internal/timezone"
)

// SlotQueryIndex answers point queries against one render cycle's blocks.
// Bucketing by day keeps a D-days x T-slots grid from scanning the full
// unfiltered lists on every cell.
type SlotQueryIndex struct {
	blocksByDay map[timezone.Date][]TimeBlock
	apptsByDay  map[timezone.Date][]AppointmentBlock
}

func NewSlotQueryIndex(visibleDays []timezone.Date, blocks []TimeBlock, appts []AppointmentBlock) *SlotQueryIndex {
	idx := &SlotQueryIndex{
		blocksByDay: make(map[timezone.Date][]TimeBlock, len(visibleDays)),
		apptsByDay:  make(map[timezone.Date][]AppointmentBlock, len(visibleDays)),
	}
	for _, d := range visibleDays {
		idx.blocksByDay[d] = nil
		idx.apptsByDay[d] = nil
	}
	for _, b := range blocks {
		if _, ok := idx.blocksByDay[b.Day]; ok {
			idx.blocksByDay[b.Day] = append(idx.blocksByDay[b.Day], b)
		}
	}
	for _, a := range appts {
		if _, ok := idx.apptsByDay[a.Day]; ok {
			idx.apptsByDay[a.Day] = append(idx.apptsByDay[a.Day], a)
		}
	}
	return idx
}

// IsAvailable reports whether some block on day covers slotStart, with
// [start, end) semantics.
func (idx *SlotQueryIndex) IsAvailable(day timezone.Date, slotStart time.Time) bool {
	return idx.BlockAt(day, slotStart) != nil
}

// BlockAt returns the first block on day covering slotStart. After merging
// at most one block can match.
func (idx *SlotQueryIndex) BlockAt(day timezone.Date, slotStart time.Time) *TimeBlock {
	for i := range idx.blocksByDay[day] {
		b := &idx.blocksByDay[day][i]
		if covers(b.Start, b.End, slotStart) {
			return b
		}
	}
	return nil
}

// AppointmentAt returns the first appointment on day covering slotStart.
func (idx *SlotQueryIndex) AppointmentAt(day timezone.Date, slotStart time.Time) *AppointmentBlock {
	for i := range idx.apptsByDay[day] {
		a := &idx.apptsByDay[day][i]
		if covers(a.Start, a.End, slotStart) {
			return a
		}
	}
	return nil
}

// BlocksOn returns the day's merged availability in start order.
func (idx *SlotQueryIndex) BlocksOn(day timezone.Date) []TimeBlock {
	return idx.blocksByDay[day]
}

// AppointmentsOn returns the day's projected appointments.
func (idx *SlotQueryIndex) AppointmentsOn(day timezone.Date) []AppointmentBlock {
	return idx.apptsByDay[day]
}

func covers(start, end, at time.Time) bool {
	return !at.Before(start) && at.Before(end)
}
