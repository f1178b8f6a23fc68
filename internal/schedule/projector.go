package schedule

import (
	"time"

	"github.com/careloop/telehealth-scheduling/internal/timezone"
)

// Projector places stored-UTC appointments onto local calendar days.
type Projector struct {
	tz *timezone.Service
}

func NewProjector(tz *timezone.Service) *Projector {
	return &Projector{tz: tz}
}

// Project converts each appointment into loc and attributes it to the local
// date of its start instant. Appointments landing outside visibleDays belong
// to adjacent weeks and are dropped silently; appointments with missing
// instants are dropped with a diagnostic. An interval that crosses local
// midnight stays on its start date.
func (p *Projector) Project(appointments []Appointment, loc *time.Location, visibleDays []timezone.Date) ([]AppointmentBlock, []Diagnostic) {
	visible := make(map[timezone.Date]struct{}, len(visibleDays))
	for _, d := range visibleDays {
		visible[d] = struct{}{}
	}

	blocks := make([]AppointmentBlock, 0, len(appointments))
	var diags []Diagnostic

	for _, appt := range appointments {
		if appt.StartAt.IsZero() || appt.EndAt.IsZero() {
			diags = append(diags, Diagnostic{
				RecordID: appt.ID,
				Source:   "appointment",
				Detail:   "missing start or end instant",
			})
			continue
		}

		localStart := appt.StartAt.In(loc)
		day := timezone.DateOf(localStart)
		if _, ok := visible[day]; !ok {
			continue
		}

		blocks = append(blocks, AppointmentBlock{
			ID:         appt.ID,
			Day:        day,
			Start:      localStart,
			End:        appt.EndAt.In(loc),
			ClientID:   appt.ClientID,
			ClientName: appt.ClientName,
			Status:     string(appt.Status),
			Type:       appt.Type,
		})
	}

	return blocks, diags
}
