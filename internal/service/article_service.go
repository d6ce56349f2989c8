package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/medico-project/medico-go-api/internal/dto"
	"github.com/medico-project/medico-go-api/internal/models"
	"github.com/medico-project/medico-go-api/internal/repository"
)

// maxCoverImageSize caps article cover uploads at 5 MiB.
const maxCoverImageSize = 5 << 20

var allowedCoverTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// FileStorage stores an uploaded asset and returns its public URL.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// ArticleService manages the public health articles written by medical staff.
type ArticleService struct {
	articles  repository.ArticleRepository
	users     repository.UserRepository
	storage   FileStorage
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewArticleService constructs an article service. Storage may be nil when no
// upload backend is configured; cover uploads then fail with ErrInvalidState.
func NewArticleService(
	articles repository.ArticleRepository,
	users repository.UserRepository,
	storage FileStorage,
	validate *validator.Validate,
	logger zerolog.Logger,
) *ArticleService {
	return &ArticleService{
		articles:  articles,
		users:     users,
		storage:   storage,
		validate:  validate,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "article_service").Logger(),
	}
}

// Create publishes a new article. Only medical staff may author articles.
func (s *ArticleService) Create(ctx context.Context, actor Actor, req dto.ArticleCreateRequest, cover *multipart.FileHeader) (dto.ArticleResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.ArticleResponse{}, err
	}
	if !actor.IsMedicalStaff() && !actor.IsAdmin() {
		return dto.ArticleResponse{}, ErrNotAuthorised
	}

	article := models.Article{
		AuthorID: actor.ID,
		Title:    s.sanitizer.Sanitize(req.Title),
		Content:  s.sanitizer.Sanitize(req.Content),
	}

	if cover != nil {
		url, err := s.uploadCover(ctx, cover)
		if err != nil {
			return dto.ArticleResponse{}, err
		}
		article.CoverImage = url
	}

	if err := s.articles.Create(ctx, &article); err != nil {
		return dto.ArticleResponse{}, fmt.Errorf("failed to create article: %w", err)
	}

	author, err := s.users.GetByID(ctx, actor.ID)
	if err == nil {
		article.Author = author
	}

	s.logger.Info().Uint("article_id", article.ID).Uint("author_id", actor.ID).Msg("article published")

	return dto.NewArticleResponse(article), nil
}

// Get returns a single article.
func (s *ArticleService) Get(ctx context.Context, id uint) (dto.ArticleResponse, error) {
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return dto.ArticleResponse{}, fmt.Errorf("failed to load article: %w", err)
	}
	return dto.NewArticleResponse(article), nil
}

// List returns published articles, newest first.
func (s *ArticleService) List(ctx context.Context, limit, offset int) ([]dto.ArticleResponse, error) {
	articles, err := s.articles.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return dto.NewArticleResponseSlice(articles), nil
}

// Delete removes an article. Only the author or an admin may delete it.
func (s *ArticleService) Delete(ctx context.Context, actor Actor, id uint) error {
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load article: %w", err)
	}
	if article.AuthorID != actor.ID && !actor.IsAdmin() {
		return ErrNotAuthorised
	}

	if err := s.articles.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}

	s.logger.Info().Uint("article_id", id).Uint("user_id", actor.ID).Msg("article deleted")

	return nil
}

func (s *ArticleService) uploadCover(ctx context.Context, header *multipart.FileHeader) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("%w: no upload storage configured", ErrInvalidState)
	}
	if header.Size > maxCoverImageSize {
		return "", fmt.Errorf("%w: cover image exceeds %d bytes", ErrInvalidState, maxCoverImageSize)
	}

	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open cover image: %w", err)
	}
	defer file.Close()

	buf, err := io.ReadAll(io.LimitReader(file, maxCoverImageSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read cover image: %w", err)
	}
	if len(buf) > maxCoverImageSize {
		return "", fmt.Errorf("%w: cover image exceeds %d bytes", ErrInvalidState, maxCoverImageSize)
	}

	detected := mimetype.Detect(buf)
	if _, ok := allowedCoverTypes[detected.String()]; !ok {
		return "", fmt.Errorf("%w: unsupported cover image type %s", ErrInvalidState, detected.String())
	}

	url, err := s.storage.Upload(ctx, header.Filename, bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("failed to upload cover image: %w", err)
	}
	return url, nil
}
