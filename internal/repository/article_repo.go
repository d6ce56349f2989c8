package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/medico-project/medico-go-api/internal/models"
)

// ArticleRepository persists public health articles.
type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	GetByID(ctx context.Context, id uint) (models.Article, error)
	List(ctx context.Context, limit, offset int) ([]models.Article, error)
	Delete(ctx context.Context, id uint) error
}

type articleRepository struct {
	db *gorm.DB
}

// NewArticleRepository constructs an article repository backed by GORM.
func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) Create(ctx context.Context, article *models.Article) error {
	return r.db.WithContext(ctx).Omit("Author").Create(article).Error
}

func (r *articleRepository) GetByID(ctx context.Context, id uint) (models.Article, error) {
	var article models.Article
	err := r.db.WithContext(ctx).Preload("Author").First(&article, id).Error
	if err != nil {
		return models.Article{}, err
	}
	return article, nil
}

func (r *articleRepository) List(ctx context.Context, limit, offset int) ([]models.Article, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var articles []models.Article
	err := r.db.WithContext(ctx).
		Preload("Author").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&articles).Error
	if err != nil {
		return nil, err
	}
	return articles, nil
}

func (r *articleRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Article{}, id).Error
}
