package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/careloop/telehealth-scheduling/internal/booking"
	redisclient "github.com/careloop/telehealth-scheduling/internal/redis"
	"github.com/careloop/telehealth-scheduling/internal/schedule"
	"github.com/careloop/telehealth-scheduling/internal/timezone"
)

var validate = validator.New()

type handler struct {
	calendar CalendarService
	booking  BookingService
}

func (h *handler) weekView(w http.ResponseWriter, r *http.Request) {
	clinicianID, err := uuid.Parse(r.URL.Query().Get("clinician_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_clinician_id", "clinician_id must be a valid UUID")
		return
	}

	weekStart, err := timezone.ParseDate(r.URL.Query().Get("week_start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_week_start", "week_start must be YYYY-MM-DD")
		return
	}

	snapshot, err := h.calendar.WeekView(r.Context(), clinicianID, weekStart, r.URL.Query().Get("zone"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

func (h *handler) monthView(w http.ResponseWriter, r *http.Request) {
	clinicianID, err := uuid.Parse(r.URL.Query().Get("clinician_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_clinician_id", "clinician_id must be a valid UUID")
		return
	}

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 1970 || year > 9999 {
		writeError(w, http.StatusBadRequest, "invalid_year", "year must be a four-digit number")
		return
	}

	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "invalid_month", "month must be between 1 and 12")
		return
	}

	snapshot, err := h.calendar.MonthView(r.Context(), clinicianID, year, time.Month(month), r.URL.Query().Get("zone"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

func (h *handler) createRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	clinicianID, _ := uuid.Parse(req.ClinicianID)

	day, err := schedule.ParseWeekday(req.DayOfWeek)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_day_of_week", err.Error())
		return
	}

	start, err := timezone.ParseWallClock(req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be HH:MM")
		return
	}
	end, err := timezone.ParseWallClock(req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_end_time", "end_time must be HH:MM")
		return
	}

	rule, err := h.calendar.CreateRule(r.Context(), clinicianID, day, start, end)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newRuleResponse(rule))
}

func (h *handler) updateRule(w http.ResponseWriter, r *http.Request) {
	ruleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_rule_id", "id must be a valid UUID")
		return
	}

	var req UpdateRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	clinicianID, _ := uuid.Parse(req.ClinicianID)

	start, err := timezone.ParseWallClock(req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be HH:MM")
		return
	}
	end, err := timezone.ParseWallClock(req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_end_time", "end_time must be HH:MM")
		return
	}

	rule, err := h.calendar.UpdateRule(r.Context(), clinicianID, ruleID, start, end)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newRuleResponse(rule))
}

func (h *handler) removeRule(w http.ResponseWriter, r *http.Request) {
	ruleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_rule_id", "id must be a valid UUID")
		return
	}

	clinicianID, err := uuid.Parse(r.URL.Query().Get("clinician_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_clinician_id", "clinician_id must be a valid UUID")
		return
	}

	if err := h.calendar.RemoveRule(r.Context(), clinicianID, ruleID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) createException(w http.ResponseWriter, r *http.Request) {
	var req CreateExceptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	clinicianID, _ := uuid.Parse(req.ClinicianID)

	date, err := timezone.ParseDate(req.SpecificDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_specific_date", "specific_date must be YYYY-MM-DD")
		return
	}

	var originalRuleID *uuid.UUID
	if req.OriginalRuleID != nil {
		id, err := uuid.Parse(*req.OriginalRuleID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_original_rule_id", "original_rule_id must be a valid UUID")
			return
		}
		originalRuleID = &id
	}

	var start, end *timezone.WallClock
	if req.StartTime != nil {
		c, err := timezone.ParseWallClock(*req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be HH:MM")
			return
		}
		start = &c
	}
	if req.EndTime != nil {
		c, err := timezone.ParseWallClock(*req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_time", "end_time must be HH:MM")
			return
		}
		end = &c
	}

	exc, err := h.calendar.AddException(r.Context(), clinicianID, date, originalRuleID, start, end, req.IsDeleted)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newExceptionResponse(exc))
}

func (h *handler) bookAppointment(w http.ResponseWriter, r *http.Request) {
	var req BookAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	clinicianID, _ := uuid.Parse(req.ClinicianID)
	clientID, _ := uuid.Parse(req.ClientID)

	appt, err := h.booking.Book(r.Context(), clinicianID, clientID, req.StartAt, req.EndAt, req.Type)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newAppointmentResponse(appt))
}

func (h *handler) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}

	appt, err := h.booking.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newAppointmentResponse(appt))
}

func (h *handler) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	h.transitionAppointment(w, r, h.booking.Cancel)
}

func (h *handler) completeAppointment(w http.ResponseWriter, r *http.Request) {
	h.transitionAppointment(w, r, h.booking.Complete)
}

func (h *handler) transitionAppointment(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return
	}

	appt, err := fn(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newAppointmentResponse(appt))
}

func handleServiceError(w http.ResponseWriter, err error) {
	var vErr *schedule.ValidationError
	if errors.As(err, &vErr) {
		writeError(w, http.StatusBadRequest, "invalid_"+vErr.Field, vErr.Reason)
		return
	}

	switch {
	case errors.Is(err, schedule.ErrClinicianNotFound):
		writeError(w, http.StatusNotFound, "clinician_not_found", err.Error())
	case errors.Is(err, schedule.ErrClientNotFound):
		writeError(w, http.StatusNotFound, "client_not_found", err.Error())
	case errors.Is(err, schedule.ErrRuleNotFound):
		writeError(w, http.StatusNotFound, "rule_not_found", err.Error())
	case errors.Is(err, schedule.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, booking.ErrBookingInProgress),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "booking_in_progress", "interval is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		var fErr *schedule.FetchError
		if errors.As(err, &fErr) {
			writeError(w, http.StatusBadGateway, "upstream_unavailable", fErr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
