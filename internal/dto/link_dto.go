package dto

import (
	"time"

	"github.com/medico-project/medico-go-api/internal/models"
)

// LinkCreateRequest opens a pending link request towards another user.
type LinkCreateRequest struct {
	ToUserID uint   `json:"to_user" validate:"required"`
	LinkType string `json:"link_type" validate:"required,oneof=doctor_patient prothesist_patient kinetherapist_patient doctor_prothesist doctor_kinetherapist prothesist_kinetherapist"`
}

// LinkResponse is the serialized representation of a user link.
type LinkResponse struct {
	ID               uint      `json:"id"`
	FromUserID       uint      `json:"from_user"`
	FromUserUsername string    `json:"from_user_username"`
	FromUserRole     string    `json:"from_user_role"`
	ToUserID         uint      `json:"to_user"`
	ToUserUsername   string    `json:"to_user_username"`
	ToUserRole       string    `json:"to_user_role"`
	LinkType         string    `json:"link_type"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewLinkResponse converts a link model into a DTO.
func NewLinkResponse(link models.UserLink) LinkResponse {
	return LinkResponse{
		ID:               link.ID,
		FromUserID:       link.FromUserID,
		FromUserUsername: link.FromUser.Username,
		FromUserRole:     link.FromUser.Role,
		ToUserID:         link.ToUserID,
		ToUserUsername:   link.ToUser.Username,
		ToUserRole:       link.ToUser.Role,
		LinkType:         link.LinkType,
		Status:           link.Status,
		CreatedAt:        link.CreatedAt,
		UpdatedAt:        link.UpdatedAt,
	}
}

// NewLinkResponseSlice converts a slice of models into DTOs.
func NewLinkResponseSlice(links []models.UserLink) []LinkResponse {
	out := make([]LinkResponse, 0, len(links))
	for _, link := range links {
		out = append(out, NewLinkResponse(link))
	}
	return out
}
