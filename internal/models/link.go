package models

import "time"

// Link types connecting the different roles.
const (
	LinkTypeDoctorPatient           = "doctor_patient"
	LinkTypeProthesistPatient       = "prothesist_patient"
	LinkTypeKinetherapistPatient    = "kinetherapist_patient"
	LinkTypeDoctorProthesist        = "doctor_prothesist"
	LinkTypeDoctorKinetherapist     = "doctor_kinetherapist"
	LinkTypeProthesistKinetherapist = "prothesist_kinetherapist"
)

// Link statuses.
const (
	LinkStatusPending  = "pending"
	LinkStatusAccepted = "accepted"
)

// UserLink is a directional relationship request between two users. Two users
// are considered linked once a record in either direction reaches the
// accepted status; that check gates chat room access.
type UserLink struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FromUserID uint      `gorm:"index;not null;uniqueIndex:idx_user_links_pair_type" json:"from_user"`
	FromUser   User      `json:"-"`
	ToUserID   uint      `gorm:"index;not null;uniqueIndex:idx_user_links_pair_type" json:"to_user"`
	ToUser     User      `json:"-"`
	LinkType   string    `gorm:"size:50;not null;uniqueIndex:idx_user_links_pair_type" json:"link_type"`
	Status     string    `gorm:"size:20;not null;default:pending" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
