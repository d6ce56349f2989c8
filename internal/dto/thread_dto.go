package dto

import (
	"time"

	"github.com/medico-project/medico-go-api/internal/models"
)

// UserSummary is the minimal user representation embedded in responses.
type UserSummary struct {
	ID             uint   `json:"id"`
	Username       string `json:"username"`
	Role           string `json:"role"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// NewUserSummary converts a user model into its embedded form.
func NewUserSummary(user models.User) UserSummary {
	return UserSummary{
		ID:             user.ID,
		Username:       user.Username,
		Role:           user.Role,
		ProfilePicture: user.ProfilePicture,
	}
}

// ThreadCreateRequest opens a thread with another user.
type ThreadCreateRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

// ThreadResponse describes a chat thread returned by the API.
type ThreadResponse struct {
	ID           uint                `json:"id"`
	Participants []UserSummary       `json:"participants"`
	CreatedAt    time.Time           `json:"created_at"`
	LastMessage  *ChatMessagePayload `json:"last_message,omitempty"`
	UnreadCount  int64               `json:"unread_count"`
}

// NewThreadResponse converts a thread model into a DTO.
func NewThreadResponse(thread models.Thread) ThreadResponse {
	participants := make([]UserSummary, 0, len(thread.Participants))
	for _, participant := range thread.Participants {
		participants = append(participants, NewUserSummary(participant))
	}

	return ThreadResponse{
		ID:           thread.ID,
		Participants: participants,
		CreatedAt:    thread.CreatedAt,
	}
}
