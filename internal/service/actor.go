package service

import "github.com/medico-project/medico-go-api/internal/models"

// Actor identifies the authenticated user performing an operation.
type Actor struct {
	ID   uint
	Role string
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// IsMedicalStaff reports whether the actor may author medical content.
func (a Actor) IsMedicalStaff() bool {
	switch a.Role {
	case models.RoleDoctor, models.RoleProthesist, models.RoleKinetherapist:
		return true
	}
	return false
}
