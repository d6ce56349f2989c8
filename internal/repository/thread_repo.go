package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/medico-project/medico-go-api/internal/models"
)

// ThreadRepository persists chat threads and their participant sets.
type ThreadRepository interface {
	Create(ctx context.Context, thread *models.Thread) error
	GetWithParticipants(ctx context.Context, id uint) (models.Thread, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Thread, error)
	FindBetween(ctx context.Context, userA, userB uint) (models.Thread, error)
}

type threadRepository struct {
	db *gorm.DB
}

// NewThreadRepository constructs a thread repository backed by GORM.
func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &threadRepository{db: db}
}

func (r *threadRepository) Create(ctx context.Context, thread *models.Thread) error {
	return r.db.WithContext(ctx).Omit("Participants.*").Create(thread).Error
}

func (r *threadRepository) GetWithParticipants(ctx context.Context, id uint) (models.Thread, error) {
	var thread models.Thread
	err := r.db.WithContext(ctx).Preload("Participants").First(&thread, id).Error
	if err != nil {
		return models.Thread{}, err
	}
	return thread, nil
}

func (r *threadRepository) ListByUser(ctx context.Context, userID uint) ([]models.Thread, error) {
	var threads []models.Thread
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Joins("JOIN thread_participants tp ON tp.thread_id = threads.id").
		Where("tp.user_id = ?", userID).
		Order("threads.created_at DESC").
		Find(&threads).Error
	if err != nil {
		return nil, err
	}
	return threads, nil
}

func (r *threadRepository) FindBetween(ctx context.Context, userA, userB uint) (models.Thread, error) {
	var thread models.Thread
	err := r.db.WithContext(ctx).
		Preload("Participants").
		Joins("JOIN thread_participants a ON a.thread_id = threads.id AND a.user_id = ?", userA).
		Joins("JOIN thread_participants b ON b.thread_id = threads.id AND b.user_id = ?", userB).
		First(&thread).Error
	if err != nil {
		return models.Thread{}, err
	}
	return thread, nil
}
