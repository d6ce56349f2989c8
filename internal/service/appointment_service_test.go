package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/medico-project/medico-go-api/internal/dto"
	"github.com/medico-project/medico-go-api/internal/models"
	"github.com/medico-project/medico-go-api/internal/repository"
)

type appointmentFixture struct {
	service    *AppointmentService
	dispatcher *captureDispatcher
	patient    models.User
	doctor     models.User
}

func setupAppointmentFixture(t *testing.T) appointmentFixture {
	t.Helper()
	db := setupServiceDB(t, &models.User{}, &models.Appointment{})

	patient := models.User{Username: "patient", Role: models.RolePatient}
	doctor := models.User{Username: "doctor", Role: models.RoleDoctor}
	require.NoError(t, db.Create(&patient).Error)
	require.NoError(t, db.Create(&doctor).Error)

	dispatcher := &captureDispatcher{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewAppointmentService(repository.NewAppointmentRepository(db), dispatcher, validate, testLogger())

	return appointmentFixture{service: svc, dispatcher: dispatcher, patient: patient, doctor: doctor}
}

func (f appointmentFixture) book(t *testing.T) dto.AppointmentResponse {
	t.Helper()
	appointment, err := f.service.Create(context.Background(), Actor{ID: f.patient.ID, Role: models.RolePatient}, dto.AppointmentCreateRequest{
		DoctorID:      &f.doctor.ID,
		ScheduledDate: time.Now().Add(48 * time.Hour),
		Reason:        "follow-up",
	})
	require.NoError(t, err)
	return appointment
}

func TestAppointmentServiceCreateDispatchesToBothParties(t *testing.T) {
	fixture := setupAppointmentFixture(t)

	appointment := fixture.book(t)
	require.Equal(t, models.AppointmentStatusPending, appointment.Status)
	require.Equal(t, fixture.patient.ID, appointment.PatientID)
	require.Equal(t, "doctor", appointment.DoctorUsername)

	require.Len(t, fixture.dispatcher.events, 1)
	event := fixture.dispatcher.events[0]
	require.Equal(t, EventAppointmentCreated, event.Kind)
	require.Equal(t, appointment.ID, event.Appointment.ID)

	// Only patients may book appointments.
	_, err := fixture.service.Create(context.Background(), Actor{ID: fixture.doctor.ID, Role: models.RoleDoctor}, dto.AppointmentCreateRequest{
		ScheduledDate: time.Now().Add(time.Hour),
	})
	require.ErrorIs(t, err, ErrNotAuthorised)
}

func TestAppointmentServiceStatusUpdateIsAssignedDoctorOnly(t *testing.T) {
	fixture := setupAppointmentFixture(t)
	appointment := fixture.book(t)
	fixture.dispatcher.events = nil

	_, err := fixture.service.UpdateStatus(context.Background(), Actor{ID: fixture.patient.ID, Role: models.RolePatient}, appointment.ID, dto.AppointmentStatusRequest{Status: models.AppointmentStatusAccepted})
	require.ErrorIs(t, err, ErrNotAuthorised)

	updated, err := fixture.service.UpdateStatus(context.Background(), Actor{ID: fixture.doctor.ID, Role: models.RoleDoctor}, appointment.ID, dto.AppointmentStatusRequest{Status: models.AppointmentStatusAccepted})
	require.NoError(t, err)
	require.Equal(t, models.AppointmentStatusAccepted, updated.Status)

	require.Len(t, fixture.dispatcher.events, 1)
	require.Equal(t, EventAppointmentUpdated, fixture.dispatcher.events[0].Kind)

	// Arbitrary statuses are rejected by validation.
	_, err = fixture.service.UpdateStatus(context.Background(), Actor{ID: fixture.doctor.ID, Role: models.RoleDoctor}, appointment.ID, dto.AppointmentStatusRequest{Status: "maybe"})
	require.Error(t, err)
}

func TestAppointmentServiceRescheduleEntersPendingState(t *testing.T) {
	fixture := setupAppointmentFixture(t)
	appointment := fixture.book(t)
	fixture.dispatcher.events = nil

	newDate := time.Now().Add(96 * time.Hour)
	rescheduled, err := fixture.service.Reschedule(context.Background(), Actor{ID: fixture.doctor.ID, Role: models.RoleDoctor}, appointment.ID, dto.AppointmentRescheduleRequest{ScheduledDate: newDate})
	require.NoError(t, err)
	require.Equal(t, models.AppointmentStatusReschedulePending, rescheduled.Status)
	require.WithinDuration(t, newDate, rescheduled.ScheduledDate, time.Second)

	require.Len(t, fixture.dispatcher.events, 1)
	require.Equal(t, EventAppointmentUpdated, fixture.dispatcher.events[0].Kind)

	_, err = fixture.service.Reschedule(context.Background(), Actor{ID: 99}, appointment.ID, dto.AppointmentRescheduleRequest{ScheduledDate: newDate})
	require.ErrorIs(t, err, ErrNotAuthorised)
}

func TestAppointmentServiceRescheduleIsAssignedDoctorOnly(t *testing.T) {
	fixture := setupAppointmentFixture(t)
	appointment := fixture.book(t)

	newDate := time.Now().Add(96 * time.Hour)
	_, err := fixture.service.Reschedule(context.Background(), Actor{ID: fixture.patient.ID, Role: models.RolePatient}, appointment.ID, dto.AppointmentRescheduleRequest{ScheduledDate: newDate})
	require.ErrorIs(t, err, ErrNotAuthorised)

	_, err = fixture.service.Reschedule(context.Background(), Actor{ID: fixture.doctor.ID, Role: models.RoleDoctor}, appointment.ID, dto.AppointmentRescheduleRequest{ScheduledDate: time.Now().Add(-time.Hour)})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestAppointmentServiceConfirmRescheduleSettlesStatus(t *testing.T) {
	fixture := setupAppointmentFixture(t)
	appointment := fixture.book(t)

	newDate := time.Now().Add(96 * time.Hour)
	_, err := fixture.service.Reschedule(context.Background(), Actor{ID: fixture.doctor.ID, Role: models.RoleDoctor}, appointment.ID, dto.AppointmentRescheduleRequest{ScheduledDate: newDate})
	require.NoError(t, err)
	fixture.dispatcher.events = nil

	// Only the patient may settle the proposal.
	_, err = fixture.service.ConfirmReschedule(context.Background(), Actor{ID: fixture.doctor.ID, Role: models.RoleDoctor}, appointment.ID, dto.AppointmentConfirmRequest{Decision: dto.RescheduleDecisionAccept})
	require.ErrorIs(t, err, ErrNotAuthorised)

	confirmed, err := fixture.service.ConfirmReschedule(context.Background(), Actor{ID: fixture.patient.ID, Role: models.RolePatient}, appointment.ID, dto.AppointmentConfirmRequest{Decision: dto.RescheduleDecisionAccept})
	require.NoError(t, err)
	require.Equal(t, models.AppointmentStatusAccepted, confirmed.Status)

	require.Len(t, fixture.dispatcher.events, 1)
	require.Equal(t, EventAppointmentUpdated, fixture.dispatcher.events[0].Kind)

	// Nothing pending any more, so a second confirmation is refused.
	_, err = fixture.service.ConfirmReschedule(context.Background(), Actor{ID: fixture.patient.ID, Role: models.RolePatient}, appointment.ID, dto.AppointmentConfirmRequest{Decision: dto.RescheduleDecisionReject})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestAppointmentServiceConfirmRescheduleCanReject(t *testing.T) {
	fixture := setupAppointmentFixture(t)
	appointment := fixture.book(t)

	_, err := fixture.service.Reschedule(context.Background(), Actor{ID: fixture.doctor.ID, Role: models.RoleDoctor}, appointment.ID, dto.AppointmentRescheduleRequest{ScheduledDate: time.Now().Add(96 * time.Hour)})
	require.NoError(t, err)

	rejected, err := fixture.service.ConfirmReschedule(context.Background(), Actor{ID: fixture.patient.ID, Role: models.RolePatient}, appointment.ID, dto.AppointmentConfirmRequest{Decision: dto.RescheduleDecisionReject})
	require.NoError(t, err)
	require.Equal(t, models.AppointmentStatusRejected, rejected.Status)
}

func TestAppointmentServiceDeleteEmitsSnapshot(t *testing.T) {
	fixture := setupAppointmentFixture(t)
	appointment := fixture.book(t)
	fixture.dispatcher.events = nil

	require.NoError(t, fixture.service.Delete(context.Background(), Actor{ID: fixture.patient.ID, Role: models.RolePatient}, appointment.ID))

	require.Len(t, fixture.dispatcher.events, 1)
	event := fixture.dispatcher.events[0]
	require.Equal(t, EventAppointmentDeleted, event.Kind)
	require.Equal(t, appointment.ID, event.Appointment.ID, "event carries the pre-deletion snapshot")
	require.Equal(t, "doctor", event.Appointment.DoctorUsername)

	_, err := fixture.service.Get(context.Background(), Actor{ID: fixture.patient.ID, Role: models.RolePatient}, appointment.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAppointmentServiceListIsRoleScoped(t *testing.T) {
	fixture := setupAppointmentFixture(t)
	fixture.book(t)

	mine, err := fixture.service.List(context.Background(), Actor{ID: fixture.patient.ID, Role: models.RolePatient})
	require.NoError(t, err)
	require.Len(t, mine, 1)

	assigned, err := fixture.service.List(context.Background(), Actor{ID: fixture.doctor.ID, Role: models.RoleDoctor})
	require.NoError(t, err)
	require.Len(t, assigned, 1)

	otherDoctor, err := fixture.service.List(context.Background(), Actor{ID: 99, Role: models.RoleDoctor})
	require.NoError(t, err)
	require.Empty(t, otherDoctor)

	everything, err := fixture.service.List(context.Background(), Actor{ID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, everything, 1)
}
