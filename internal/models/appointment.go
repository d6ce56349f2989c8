package models

import "time"

// Appointment statuses.
const (
	AppointmentStatusPending           = "pending"
	AppointmentStatusAccepted          = "accepted"
	AppointmentStatusRejected          = "rejected"
	AppointmentStatusReschedulePending = "reschedule_pending"
)

// Appointment links a patient with a medical staff member at a scheduled time.
type Appointment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PatientID     uint      `gorm:"index;not null" json:"patient"`
	Patient       User      `json:"-"`
	DoctorID      *uint     `gorm:"index" json:"doctor"`
	Doctor        *User     `json:"-"`
	ScheduledDate time.Time `gorm:"not null" json:"scheduled_date"`
	Reason        string    `gorm:"type:text" json:"reason"`
	Status        string    `gorm:"size:20;not null;default:pending" json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
