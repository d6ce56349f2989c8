package dto

import (
	"time"

	"github.com/medico-project/medico-go-api/internal/models"
)

// ArticleCreateRequest publishes a new article.
type ArticleCreateRequest struct {
	Title   string `json:"title" validate:"required,min=3,max=255"`
	Content string `json:"content" validate:"required,min=1"`
}

// ArticleResponse is the serialized representation of an article.
type ArticleResponse struct {
	ID             uint      `json:"id"`
	AuthorID       uint      `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	CoverImage     string    `json:"cover_image,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewArticleResponse converts an article model into a DTO.
func NewArticleResponse(article models.Article) ArticleResponse {
	return ArticleResponse{
		ID:             article.ID,
		AuthorID:       article.AuthorID,
		AuthorUsername: article.Author.Username,
		Title:          article.Title,
		Content:        article.Content,
		CoverImage:     article.CoverImage,
		CreatedAt:      article.CreatedAt,
	}
}

// NewArticleResponseSlice converts a slice of models into DTOs.
func NewArticleResponseSlice(articles []models.Article) []ArticleResponse {
	out := make([]ArticleResponse, 0, len(articles))
	for _, article := range articles {
		out = append(out, NewArticleResponse(article))
	}
	return out
}
