package models

import "time"

// User roles supported by the platform.
const (
	RoleAdmin         = "admin"
	RolePatient       = "patient"
	RoleDoctor        = "doctor"
	RoleProthesist    = "prothesist"
	RoleKinetherapist = "kinetherapist"
)

// User is the minimal identity record the realtime core needs. Account
// creation and credential management live in the external identity service.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Role           string    `gorm:"size:20;not null;default:patient" json:"role"`
	FirstName      string    `gorm:"size:150" json:"first_name"`
	LastName       string    `gorm:"size:150" json:"last_name"`
	ProfilePicture string    `gorm:"size:512" json:"profile_picture"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsMedicalStaff reports whether the user may act on appointments assigned to them.
func (u User) IsMedicalStaff() bool {
	switch u.Role {
	case RoleDoctor, RoleProthesist, RoleKinetherapist:
		return true
	default:
		return false
	}
}
