package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/medico-project/medico-go-api/internal/models"
)

// AppointmentRepository persists appointment records.
type AppointmentRepository interface {
	Create(ctx context.Context, appointment *models.Appointment) error
	GetByID(ctx context.Context, id uint) (models.Appointment, error)
	ListByPatient(ctx context.Context, patientID uint) ([]models.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uint) ([]models.Appointment, error)
	ListAll(ctx context.Context) ([]models.Appointment, error)
	Save(ctx context.Context, appointment *models.Appointment) error
	Delete(ctx context.Context, id uint) error
}

type appointmentRepository struct {
	db *gorm.DB
}

// NewAppointmentRepository constructs an appointment repository backed by GORM.
func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *models.Appointment) error {
	return r.db.WithContext(ctx).Omit("Patient", "Doctor").Create(appointment).Error
}

func (r *appointmentRepository) GetByID(ctx context.Context, id uint) (models.Appointment, error) {
	var appointment models.Appointment
	err := r.db.WithContext(ctx).Preload("Patient").Preload("Doctor").First(&appointment, id).Error
	if err != nil {
		return models.Appointment{}, err
	}
	return appointment, nil
}

func (r *appointmentRepository) ListByPatient(ctx context.Context, patientID uint) ([]models.Appointment, error) {
	return r.list(ctx, r.db.Where("patient_id = ?", patientID))
}

func (r *appointmentRepository) ListByDoctor(ctx context.Context, doctorID uint) ([]models.Appointment, error) {
	return r.list(ctx, r.db.Where("doctor_id = ?", doctorID))
}

func (r *appointmentRepository) ListAll(ctx context.Context) ([]models.Appointment, error) {
	return r.list(ctx, r.db)
}

func (r *appointmentRepository) list(ctx context.Context, query *gorm.DB) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := query.WithContext(ctx).
		Preload("Patient").
		Preload("Doctor").
		Order("scheduled_date DESC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) Save(ctx context.Context, appointment *models.Appointment) error {
	return r.db.WithContext(ctx).Omit("Patient", "Doctor").Save(appointment).Error
}

func (r *appointmentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Appointment{}, id).Error
}
