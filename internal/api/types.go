package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/careloop/telehealth-scheduling/internal/schedule"
)

type CreateRuleRequest struct {
	ClinicianID string `json:"clinician_id" validate:"required,uuid"`
	DayOfWeek   string `json:"day_of_week" validate:"required"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
}

type UpdateRuleRequest struct {
	ClinicianID string `json:"clinician_id" validate:"required,uuid"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
}

type CreateExceptionRequest struct {
	ClinicianID    string  `json:"clinician_id" validate:"required,uuid"`
	SpecificDate   string  `json:"specific_date" validate:"required"`
	OriginalRuleID *string `json:"original_rule_id,omitempty" validate:"omitempty,uuid"`
	StartTime      *string `json:"start_time,omitempty"`
	EndTime        *string `json:"end_time,omitempty"`
	IsDeleted      bool    `json:"is_deleted"`
}

type BookAppointmentRequest struct {
	ClinicianID string    `json:"clinician_id" validate:"required,uuid"`
	ClientID    string    `json:"client_id" validate:"required,uuid"`
	StartAt     time.Time `json:"start_at" validate:"required"`
	EndAt       time.Time `json:"end_at" validate:"required"`
	Type        string    `json:"type" validate:"required,max=64"`
}

type RuleResponse struct {
	ID          uuid.UUID `json:"id"`
	ClinicianID uuid.UUID `json:"clinician_id"`
	DayOfWeek   string    `json:"day_of_week"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	IsActive    bool      `json:"is_active"`
}

func newRuleResponse(rule *schedule.AvailabilityRule) RuleResponse {
	return RuleResponse{
		ID:          rule.ID,
		ClinicianID: rule.ClinicianID,
		DayOfWeek:   rule.DayOfWeek.String(),
		StartTime:   rule.StartTime.String(),
		EndTime:     rule.EndTime.String(),
		IsActive:    rule.Active,
	}
}

type ExceptionResponse struct {
	ID             uuid.UUID  `json:"id"`
	ClinicianID    uuid.UUID  `json:"clinician_id"`
	SpecificDate   string     `json:"specific_date"`
	OriginalRuleID *uuid.UUID `json:"original_rule_id,omitempty"`
	StartTime      *string    `json:"start_time,omitempty"`
	EndTime        *string    `json:"end_time,omitempty"`
	IsDeleted      bool       `json:"is_deleted"`
}

func newExceptionResponse(exc *schedule.AvailabilityException) ExceptionResponse {
	resp := ExceptionResponse{
		ID:             exc.ID,
		ClinicianID:    exc.ClinicianID,
		SpecificDate:   exc.SpecificDate.String(),
		OriginalRuleID: exc.OriginalRuleID,
		IsDeleted:      exc.IsDeleted,
	}
	if exc.StartTime != nil {
		s := exc.StartTime.String()
		resp.StartTime = &s
	}
	if exc.EndTime != nil {
		e := exc.EndTime.String()
		resp.EndTime = &e
	}
	return resp
}

type AppointmentResponse struct {
	ID          uuid.UUID `json:"id"`
	ClinicianID uuid.UUID `json:"clinician_id"`
	ClientID    uuid.UUID `json:"client_id"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Status      string    `json:"status"`
	Type        string    `json:"type,omitempty"`
}

func newAppointmentResponse(appt *schedule.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          appt.ID,
		ClinicianID: appt.ClinicianID,
		ClientID:    appt.ClientID,
		StartAt:     appt.StartAt,
		EndAt:       appt.EndAt,
		Status:      string(appt.Status),
		Type:        appt.Type,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
