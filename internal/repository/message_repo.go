package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/medico-project/medico-go-api/internal/models"
)

// MessageRepository persists chat messages and per-user read state. Append
// seeds the sender into the reader set so read_by is never empty; MarkRead is
// idempotent and reports how many messages were newly marked.
type MessageRepository interface {
	Append(ctx context.Context, threadID uint, sender models.User, text string) (models.Message, error)
	MarkRead(ctx context.Context, threadID uint, reader models.User) (int64, error)
	UnreadSince(ctx context.Context, threadID, readerID uint) ([]models.Message, error)
	CountUnread(ctx context.Context, threadID, readerID uint) (int64, error)
	ListByThread(ctx context.Context, threadID uint, before time.Time, limit int) ([]models.Message, error)
	LatestByThread(ctx context.Context, threadID uint) (models.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a message repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Append(ctx context.Context, threadID uint, sender models.User, text string) (models.Message, error) {
	message := models.Message{
		ThreadID: threadID,
		SenderID: sender.ID,
		Text:     text,
		ReadBy:   []models.User{sender},
	}

	if err := r.db.WithContext(ctx).Omit("ReadBy.*").Create(&message).Error; err != nil {
		return models.Message{}, err
	}

	message.Sender = sender
	return message, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, threadID uint, reader models.User) (int64, error) {
	unread, err := r.UnreadSince(ctx, threadID, reader.ID)
	if err != nil {
		return 0, err
	}

	for i := range unread {
		if err := r.db.WithContext(ctx).Model(&unread[i]).Omit("ReadBy.*").Association("ReadBy").Append(&reader); err != nil {
			return int64(i), err
		}
	}

	return int64(len(unread)), nil
}

func (r *messageRepository) UnreadSince(ctx context.Context, threadID, readerID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("ReadBy").
		Where("thread_id = ?", threadID).
		Where("id NOT IN (?)", r.db.Table("message_reads").Select("message_id").Where("user_id = ?", readerID)).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) CountUnread(ctx context.Context, threadID, readerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("thread_id = ?", threadID).
		Where("id NOT IN (?)", r.db.Table("message_reads").Select("message_id").Where("user_id = ?", readerID)).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *messageRepository) ListByThread(ctx context.Context, threadID uint, before time.Time, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("ReadBy").
		Where("thread_id = ?", threadID)
	if !before.IsZero() {
		query = query.Where("created_at < ?", before)
	}

	var messages []models.Message
	if err := query.Order("created_at DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}

	// Reverse to chronological order ascending for clients.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *messageRepository) LatestByThread(ctx context.Context, threadID uint) (models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("ReadBy").
		Where("thread_id = ?", threadID).
		Order("created_at DESC").
		First(&message).Error
	if err != nil {
		return models.Message{}, err
	}
	return message, nil
}
