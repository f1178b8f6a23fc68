package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/careloop/telehealth-scheduling/internal/timezone"
)

// CellAppointment is the appointment facet of one rendered cell.
type CellAppointment struct {
	ID         uuid.UUID `json:"id"`
	ClientName string    `json:"client_name"`
	Type       string    `json:"type"`
	Starts     bool      `json:"starts"` // first cell the appointment covers
}

// Cell is one day+slot of the rendered grid. An appointment always overrides
// availability in the same slot.
type Cell struct {
	SlotStart     timezone.WallClock `json:"slot_start"`
	Available     bool               `json:"available"`
	BlockStarts   bool               `json:"block_starts"` // first cell of the covering block
	HasException  bool               `json:"has_exception"`
	HasStandalone bool               `json:"has_standalone"`
	Appointment   *CellAppointment   `json:"appointment,omitempty"`
}

// DayColumn is one rendered day of the grid.
type DayColumn struct {
	Day     timezone.Date `json:"day"`
	Weekday string        `json:"weekday"`
	Cells   []Cell        `json:"cells"`
}

// Assembler turns indexed blocks into per-cell render instructions. All
// decisions about what is available or booked were already made upstream.
type Assembler struct {
	tz           *timezone.Service
	slotDuration time.Duration
	dayStart     timezone.WallClock
	dayEnd       timezone.WallClock
}

func NewAssembler(tz *timezone.Service, slotDuration time.Duration, dayStart, dayEnd timezone.WallClock) *Assembler {
	if slotDuration <= 0 {
		slotDuration = 30 * time.Minute
	}
	return &Assembler{tz: tz, slotDuration: slotDuration, dayStart: dayStart, dayEnd: dayEnd}
}

// Assemble renders the visible days against the index. loc anchors the slot
// grid; it is the same zone the appointments were projected into.
func (a *Assembler) Assemble(visibleDays []timezone.Date, loc *time.Location, idx *SlotQueryIndex) []DayColumn {
	columns := make([]DayColumn, 0, len(visibleDays))

	for _, day := range visibleDays {
		col := DayColumn{
			Day:     day,
			Weekday: WeekdayOf(day.Weekday()).String(),
		}

		var prevBlock *TimeBlock
		var prevAppt *AppointmentBlock

		for slot := a.dayStart; slot.Before(a.dayEnd); slot = slot.Add(a.slotDuration) {
			at := a.tz.ToAbsoluteInstant(day, slot, loc)
			cell := Cell{SlotStart: slot}

			appt := idx.AppointmentAt(day, at)
			block := idx.BlockAt(day, at)

			if appt != nil {
				cell.Appointment = &CellAppointment{
					ID:         appt.ID,
					ClientName: appt.ClientName,
					Type:       appt.Type,
					Starts:     prevAppt == nil || prevAppt.ID != appt.ID,
				}
			} else if block != nil {
				cell.Available = true
				cell.BlockStarts = !sameBlock(prevBlock, block)
				cell.HasException = block.HasException
				cell.HasStandalone = block.HasStandalone
			}

			prevBlock = block
			prevAppt = appt
			col.Cells = append(col.Cells, cell)
		}

		columns = append(columns, col)
	}

	return columns
}

func sameBlock(a, b *TimeBlock) bool {
	return a != nil && b != nil && a.Start.Equal(b.Start) && a.End.Equal(b.End)
}
