package dto

import (
	"encoding/json"
	"time"

	"github.com/medico-project/medico-go-api/internal/models"
)

// ChatInboundFrame is the payload clients send over a chat websocket. TempID
// is an opaque client-side reconciliation token echoed back unchanged.
type ChatInboundFrame struct {
	Message string          `json:"message"`
	TempID  json.RawMessage `json:"tempId,omitempty"`
}

// ChatMessagePayload is a delivered chat message as written to the wire.
type ChatMessagePayload struct {
	ID             uint            `json:"id"`
	ThreadID       uint            `json:"thread"`
	SenderID       uint            `json:"sender_id"`
	SenderUsername string          `json:"sender_username"`
	Message        string          `json:"message"`
	CreatedAt      time.Time       `json:"created_at"`
	ReadBy         []uint          `json:"read_by"`
	TempID         json.RawMessage `json:"tempId"`
}

// NewChatMessagePayload converts a persisted message into its wire form.
func NewChatMessagePayload(message models.Message, tempID json.RawMessage) ChatMessagePayload {
	readBy := message.ReaderIDs()
	if readBy == nil {
		readBy = []uint{}
	}

	return ChatMessagePayload{
		ID:             message.ID,
		ThreadID:       message.ThreadID,
		SenderID:       message.SenderID,
		SenderUsername: message.Sender.Username,
		Message:        message.Text,
		CreatedAt:      message.CreatedAt,
		ReadBy:         readBy,
		TempID:         tempID,
	}
}

// MessageHistoryQuery filters paged message history requests.
type MessageHistoryQuery struct {
	ThreadID uint       `query:"thread_id" validate:"required"`
	Before   *time.Time `query:"before"`
	Limit    int        `query:"limit" validate:"omitempty,min=1,max=100"`
}
