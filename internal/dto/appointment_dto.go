package dto

import (
	"time"

	"github.com/medico-project/medico-go-api/internal/models"
)

// AppointmentCreateRequest books a new appointment for the calling patient.
type AppointmentCreateRequest struct {
	DoctorID      *uint     `json:"doctor" validate:"omitempty"`
	ScheduledDate time.Time `json:"scheduled_date" validate:"required"`
	Reason        string    `json:"reason" validate:"omitempty,max=4000"`
}

// AppointmentStatusRequest accepts or rejects a pending appointment.
type AppointmentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=accepted rejected"`
}

// AppointmentRescheduleRequest proposes a new date for an appointment.
type AppointmentRescheduleRequest struct {
	ScheduledDate time.Time `json:"scheduled_date" validate:"required"`
}

// Decisions a patient can take on a pending reschedule proposal.
const (
	RescheduleDecisionAccept = "accept"
	RescheduleDecisionReject = "reject"
)

// AppointmentConfirmRequest settles a pending reschedule proposal.
type AppointmentConfirmRequest struct {
	Decision string `json:"decision" validate:"required,oneof=accept reject"`
}

// AppointmentResponse is the serialized representation of an appointment.
type AppointmentResponse struct {
	ID              uint      `json:"id"`
	PatientID       uint      `json:"patient"`
	PatientUsername string    `json:"patient_username"`
	DoctorID        *uint     `json:"doctor"`
	DoctorUsername  string    `json:"doctor_username,omitempty"`
	ScheduledDate   time.Time `json:"scheduled_date"`
	Reason          string    `json:"reason,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewAppointmentResponse converts an appointment model into a DTO.
func NewAppointmentResponse(appointment models.Appointment) AppointmentResponse {
	response := AppointmentResponse{
		ID:              appointment.ID,
		PatientID:       appointment.PatientID,
		PatientUsername: appointment.Patient.Username,
		DoctorID:        appointment.DoctorID,
		ScheduledDate:   appointment.ScheduledDate,
		Reason:          appointment.Reason,
		Status:          appointment.Status,
		CreatedAt:       appointment.CreatedAt,
	}
	if appointment.Doctor != nil {
		response.DoctorUsername = appointment.Doctor.Username
	}
	return response
}

// NewAppointmentResponseSlice converts a slice of models into DTOs.
func NewAppointmentResponseSlice(appointments []models.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appointments))
	for _, appointment := range appointments {
		out = append(out, NewAppointmentResponse(appointment))
	}
	return out
}
