package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/medico-project/medico-go-api/internal/dto"
	"github.com/medico-project/medico-go-api/internal/models"
	"github.com/medico-project/medico-go-api/internal/repository"
)

// AppointmentService handles appointment booking and its lifecycle. Every
// mutation dispatches a domain event so the affected patient and doctor see
// the change on their notification channels in real time.
type AppointmentService struct {
	appointments repository.AppointmentRepository
	events       EventDispatcher
	validate     *validator.Validate
	logger       zerolog.Logger
}

// NewAppointmentService constructs an appointment service.
func NewAppointmentService(
	appointments repository.AppointmentRepository,
	events EventDispatcher,
	validate *validator.Validate,
	logger zerolog.Logger,
) *AppointmentService {
	return &AppointmentService{
		appointments: appointments,
		events:       events,
		validate:     validate,
		logger:       logger.With().Str("component", "appointment_service").Logger(),
	}
}

// Create books a new appointment for the calling patient.
func (s *AppointmentService) Create(ctx context.Context, actor Actor, req dto.AppointmentCreateRequest) (dto.AppointmentResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.AppointmentResponse{}, err
	}
	if actor.Role != models.RolePatient {
		return dto.AppointmentResponse{}, ErrNotAuthorised
	}

	appointment := models.Appointment{
		PatientID:     actor.ID,
		DoctorID:      req.DoctorID,
		ScheduledDate: req.ScheduledDate,
		Reason:        req.Reason,
		Status:        models.AppointmentStatusPending,
	}
	if err := s.appointments.Create(ctx, &appointment); err != nil {
		return dto.AppointmentResponse{}, fmt.Errorf("failed to create appointment: %w", err)
	}

	// Reload so the response carries the preloaded patient and doctor.
	created, err := s.appointments.GetByID(ctx, appointment.ID)
	if err != nil {
		return dto.AppointmentResponse{}, fmt.Errorf("failed to load appointment: %w", err)
	}

	s.logger.Info().Uint("appointment_id", created.ID).Uint("patient_id", actor.ID).Msg("appointment created")

	response := dto.NewAppointmentResponse(created)
	s.events.Dispatch(ctx, DomainEvent{Kind: EventAppointmentCreated, Appointment: &response, ActorID: actor.ID})

	return response, nil
}

// List returns the appointments visible to the actor: patients see their own,
// medical staff see those assigned to them, admins see everything.
func (s *AppointmentService) List(ctx context.Context, actor Actor) ([]dto.AppointmentResponse, error) {
	var (
		appointments []models.Appointment
		err          error
	)
	switch {
	case actor.IsAdmin():
		appointments, err = s.appointments.ListAll(ctx)
	case actor.IsMedicalStaff():
		appointments, err = s.appointments.ListByDoctor(ctx, actor.ID)
	default:
		appointments, err = s.appointments.ListByPatient(ctx, actor.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return dto.NewAppointmentResponseSlice(appointments), nil
}

// Get returns a single appointment when the actor is a party to it.
func (s *AppointmentService) Get(ctx context.Context, actor Actor, id uint) (dto.AppointmentResponse, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return dto.AppointmentResponse{}, fmt.Errorf("failed to load appointment: %w", err)
	}
	if !s.isParty(actor, appointment) {
		return dto.AppointmentResponse{}, ErrNotAuthorised
	}
	return dto.NewAppointmentResponse(appointment), nil
}

// UpdateStatus lets the assigned doctor accept or reject an appointment.
func (s *AppointmentService) UpdateStatus(ctx context.Context, actor Actor, id uint, req dto.AppointmentStatusRequest) (dto.AppointmentResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.AppointmentResponse{}, err
	}

	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return dto.AppointmentResponse{}, fmt.Errorf("failed to load appointment: %w", err)
	}
	if appointment.DoctorID == nil || *appointment.DoctorID != actor.ID {
		return dto.AppointmentResponse{}, ErrNotAuthorised
	}

	appointment.Status = req.Status
	if err := s.appointments.Save(ctx, &appointment); err != nil {
		return dto.AppointmentResponse{}, fmt.Errorf("failed to update appointment: %w", err)
	}

	s.logger.Info().Uint("appointment_id", appointment.ID).Str("status", appointment.Status).Msg("appointment status updated")

	response := dto.NewAppointmentResponse(appointment)
	s.events.Dispatch(ctx, DomainEvent{Kind: EventAppointmentUpdated, Appointment: &response, ActorID: actor.ID})

	return response, nil
}

// Reschedule lets the assigned doctor propose a new date; the appointment
// moves to a pending reschedule state until the patient confirms.
func (s *AppointmentService) Reschedule(ctx context.Context, actor Actor, id uint, req dto.AppointmentRescheduleRequest) (dto.AppointmentResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.AppointmentResponse{}, err
	}

	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return dto.AppointmentResponse{}, fmt.Errorf("failed to load appointment: %w", err)
	}
	if appointment.DoctorID == nil || *appointment.DoctorID != actor.ID {
		return dto.AppointmentResponse{}, ErrNotAuthorised
	}
	if !req.ScheduledDate.After(time.Now()) {
		return dto.AppointmentResponse{}, fmt.Errorf("%w: cannot reschedule to a past time", ErrInvalidState)
	}

	appointment.ScheduledDate = req.ScheduledDate
	appointment.Status = models.AppointmentStatusReschedulePending
	if err := s.appointments.Save(ctx, &appointment); err != nil {
		return dto.AppointmentResponse{}, fmt.Errorf("failed to reschedule appointment: %w", err)
	}

	s.logger.Info().Uint("appointment_id", appointment.ID).Time("scheduled_date", req.ScheduledDate).Msg("appointment reschedule proposed")

	response := dto.NewAppointmentResponse(appointment)
	s.events.Dispatch(ctx, DomainEvent{Kind: EventAppointmentUpdated, Appointment: &response, ActorID: actor.ID})

	return response, nil
}

// ConfirmReschedule lets the patient accept or reject a pending reschedule
// proposal, settling the appointment into its final status.
func (s *AppointmentService) ConfirmReschedule(ctx context.Context, actor Actor, id uint, req dto.AppointmentConfirmRequest) (dto.AppointmentResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.AppointmentResponse{}, err
	}

	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return dto.AppointmentResponse{}, fmt.Errorf("failed to load appointment: %w", err)
	}
	if appointment.PatientID != actor.ID {
		return dto.AppointmentResponse{}, ErrNotAuthorised
	}
	if appointment.Status != models.AppointmentStatusReschedulePending {
		return dto.AppointmentResponse{}, fmt.Errorf("%w: no reschedule is pending", ErrInvalidState)
	}

	if req.Decision == dto.RescheduleDecisionAccept {
		appointment.Status = models.AppointmentStatusAccepted
	} else {
		appointment.Status = models.AppointmentStatusRejected
	}
	if err := s.appointments.Save(ctx, &appointment); err != nil {
		return dto.AppointmentResponse{}, fmt.Errorf("failed to confirm reschedule: %w", err)
	}

	s.logger.Info().Uint("appointment_id", appointment.ID).Str("status", appointment.Status).Msg("reschedule confirmed")

	response := dto.NewAppointmentResponse(appointment)
	s.events.Dispatch(ctx, DomainEvent{Kind: EventAppointmentUpdated, Appointment: &response, ActorID: actor.ID})

	return response, nil
}

// Delete cancels an appointment. The deletion event carries a snapshot taken
// before the row disappears so notification payloads stay complete.
func (s *AppointmentService) Delete(ctx context.Context, actor Actor, id uint) error {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load appointment: %w", err)
	}
	if !s.isParty(actor, appointment) && !actor.IsAdmin() {
		return ErrNotAuthorised
	}

	snapshot := dto.NewAppointmentResponse(appointment)
	if err := s.appointments.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	s.logger.Info().Uint("appointment_id", id).Uint("user_id", actor.ID).Msg("appointment deleted")

	s.events.Dispatch(ctx, DomainEvent{Kind: EventAppointmentDeleted, Appointment: &snapshot, ActorID: actor.ID})

	return nil
}

func (s *AppointmentService) isParty(actor Actor, appointment models.Appointment) bool {
	if appointment.PatientID == actor.ID {
		return true
	}
	return appointment.DoctorID != nil && *appointment.DoctorID == actor.ID
}
