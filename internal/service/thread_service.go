package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/medico-project/medico-go-api/internal/dto"
	"github.com/medico-project/medico-go-api/internal/models"
	"github.com/medico-project/medico-go-api/internal/repository"
)

// ThreadService manages chat threads between linked users.
type ThreadService struct {
	threads  repository.ThreadRepository
	messages repository.MessageRepository
	links    repository.LinkRepository
	users    repository.UserRepository
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewThreadService constructs a thread service.
func NewThreadService(
	threads repository.ThreadRepository,
	messages repository.MessageRepository,
	links repository.LinkRepository,
	users repository.UserRepository,
	validate *validator.Validate,
	logger zerolog.Logger,
) *ThreadService {
	return &ThreadService{
		threads:  threads,
		messages: messages,
		links:    links,
		users:    users,
		validate: validate,
		logger:   logger.With().Str("component", "thread_service").Logger(),
	}
}

// GetOrCreateWith returns the existing thread between the actor and the given
// user, creating one when none exists. Both users must share an accepted link.
func (s *ThreadService) GetOrCreateWith(ctx context.Context, actor Actor, req dto.ThreadCreateRequest) (dto.ThreadResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.ThreadResponse{}, err
	}
	if req.UserID == actor.ID {
		return dto.ThreadResponse{}, fmt.Errorf("%w: cannot open a thread with yourself", ErrInvalidState)
	}

	linked, err := s.links.HasAcceptedLink(ctx, actor.ID, req.UserID)
	if err != nil {
		return dto.ThreadResponse{}, fmt.Errorf("failed to check link: %w", err)
	}
	if !linked {
		return dto.ThreadResponse{}, ErrNotAuthorised
	}

	thread, err := s.threads.FindBetween(ctx, actor.ID, req.UserID)
	if err == nil {
		return s.describe(ctx, actor.ID, thread), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ThreadResponse{}, fmt.Errorf("failed to look up thread: %w", err)
	}

	self, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return dto.ThreadResponse{}, fmt.Errorf("failed to load user: %w", err)
	}
	other, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return dto.ThreadResponse{}, fmt.Errorf("failed to load user: %w", err)
	}

	thread = models.Thread{Participants: []models.User{self, other}}
	if err := s.threads.Create(ctx, &thread); err != nil {
		return dto.ThreadResponse{}, fmt.Errorf("failed to create thread: %w", err)
	}

	s.logger.Info().Uint("thread_id", thread.ID).Uint("user_id", actor.ID).Uint("peer_id", req.UserID).Msg("thread created")

	return s.describe(ctx, actor.ID, thread), nil
}

// ListMine returns the actor's threads with their latest message and unread count.
func (s *ThreadService) ListMine(ctx context.Context, actor Actor) ([]dto.ThreadResponse, error) {
	threads, err := s.threads.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	responses := make([]dto.ThreadResponse, 0, len(threads))
	for _, thread := range threads {
		responses = append(responses, s.describe(ctx, actor.ID, thread))
	}
	return responses, nil
}

// MarkRead marks every unread message in the thread as read by the actor and
// returns how many messages were newly marked.
func (s *ThreadService) MarkRead(ctx context.Context, actor Actor, threadID uint) (int64, error) {
	thread, err := s.threads.GetWithParticipants(ctx, threadID)
	if err != nil {
		return 0, fmt.Errorf("failed to load thread: %w", err)
	}
	if !thread.HasParticipant(actor.ID) {
		return 0, ErrNotAuthorised
	}

	reader, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load user: %w", err)
	}

	marked, err := s.messages.MarkRead(ctx, threadID, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return marked, nil
}

func (s *ThreadService) describe(ctx context.Context, userID uint, thread models.Thread) dto.ThreadResponse {
	response := dto.NewThreadResponse(thread)

	latest, err := s.messages.LatestByThread(ctx, thread.ID)
	if err == nil {
		payload := dto.NewChatMessagePayload(latest, nil)
		response.LastMessage = &payload
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warn().Err(err).Uint("thread_id", thread.ID).Msg("failed to load latest message")
	}

	unread, err := s.messages.CountUnread(ctx, thread.ID, userID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("thread_id", thread.ID).Msg("failed to count unread messages")
	}
	response.UnreadCount = unread

	return response
}
