package models

import (
	"time"

	"gorm.io/datatypes"
)

// Thread groups chat participants. The member set of the matching realtime
// room is derived from Participants plus accepted links at join time, never
// cached on the thread itself.
type Thread struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	Participants []User            `gorm:"many2many:thread_participants" json:"participants"`
	Metadata     datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt    time.Time         `json:"created_at"`
}

// HasParticipant reports whether the given user belongs to the thread.
func (t Thread) HasParticipant(userID uint) bool {
	for _, participant := range t.Participants {
		if participant.ID == userID {
			return true
		}
	}
	return false
}

// Message is a persisted chat payload inside a thread. ReadBy always
// contains the sender from the moment of creation and only ever grows.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ThreadID  uint      `gorm:"index;not null" json:"thread_id"`
	SenderID  uint      `gorm:"index;not null" json:"sender_id"`
	Sender    User      `json:"sender"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	ReadBy    []User    `gorm:"many2many:message_reads" json:"read_by"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// ReaderIDs returns the ids of every user who has read the message.
func (m Message) ReaderIDs() []uint {
	ids := make([]uint, 0, len(m.ReadBy))
	for _, reader := range m.ReadBy {
		ids = append(ids, reader.ID)
	}
	return ids
}
