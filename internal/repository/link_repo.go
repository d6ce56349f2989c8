package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/medico-project/medico-go-api/internal/models"
)

// LinkRepository persists relationship links between users. At most one link
// exists per (from, to, type) triple; the accepted check is symmetric.
type LinkRepository interface {
	Create(ctx context.Context, link *models.UserLink) error
	GetByID(ctx context.Context, id uint) (models.UserLink, error)
	HasAcceptedLink(ctx context.Context, userA, userB uint) (bool, error)
	ListForUser(ctx context.Context, userID uint) ([]models.UserLink, error)
	ListPendingForUser(ctx context.Context, userID uint) ([]models.UserLink, error)
	Save(ctx context.Context, link *models.UserLink) error
	Delete(ctx context.Context, id uint) error
}

type linkRepository struct {
	db *gorm.DB
}

// NewLinkRepository constructs a link repository backed by GORM.
func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) Create(ctx context.Context, link *models.UserLink) error {
	return r.db.WithContext(ctx).Omit("FromUser", "ToUser").Create(link).Error
}

func (r *linkRepository) GetByID(ctx context.Context, id uint) (models.UserLink, error) {
	var link models.UserLink
	err := r.db.WithContext(ctx).Preload("FromUser").Preload("ToUser").First(&link, id).Error
	if err != nil {
		return models.UserLink{}, err
	}
	return link, nil
}

func (r *linkRepository) HasAcceptedLink(ctx context.Context, userA, userB uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserLink{}).
		Where("status = ?", models.LinkStatusAccepted).
		Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)", userA, userB, userB, userA).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *linkRepository) ListForUser(ctx context.Context, userID uint) ([]models.UserLink, error) {
	var links []models.UserLink
	err := r.db.WithContext(ctx).
		Preload("FromUser").
		Preload("ToUser").
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (r *linkRepository) ListPendingForUser(ctx context.Context, userID uint) ([]models.UserLink, error) {
	var links []models.UserLink
	err := r.db.WithContext(ctx).
		Preload("FromUser").
		Preload("ToUser").
		Where("to_user_id = ? AND status = ?", userID, models.LinkStatusPending).
		Order("created_at DESC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (r *linkRepository) Save(ctx context.Context, link *models.UserLink) error {
	return r.db.WithContext(ctx).Omit("FromUser", "ToUser").Save(link).Error
}

func (r *linkRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.UserLink{}, id).Error
}
