package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/medico-project/medico-go-api/internal/dto"
	"github.com/medico-project/medico-go-api/internal/models"
	"github.com/medico-project/medico-go-api/internal/repository"
)

// LinkService manages relationship links between users. Accepted links are
// what the access guard consults, so every transition here directly widens or
// narrows who may chat with whom.
type LinkService struct {
	links    repository.LinkRepository
	users    repository.UserRepository
	events   EventDispatcher
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewLinkService constructs a link service.
func NewLinkService(
	links repository.LinkRepository,
	users repository.UserRepository,
	events EventDispatcher,
	validate *validator.Validate,
	logger zerolog.Logger,
) *LinkService {
	return &LinkService{
		links:    links,
		users:    users,
		events:   events,
		validate: validate,
		logger:   logger.With().Str("component", "link_service").Logger(),
	}
}

// Request opens a pending link from the actor towards another user.
func (s *LinkService) Request(ctx context.Context, actor Actor, req dto.LinkCreateRequest) (dto.LinkResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.LinkResponse{}, err
	}
	if req.ToUserID == actor.ID {
		return dto.LinkResponse{}, fmt.Errorf("%w: cannot link to yourself", ErrInvalidState)
	}

	if _, err := s.users.GetByID(ctx, req.ToUserID); err != nil {
		return dto.LinkResponse{}, fmt.Errorf("failed to load user: %w", err)
	}

	link := models.UserLink{
		FromUserID: actor.ID,
		ToUserID:   req.ToUserID,
		LinkType:   req.LinkType,
		Status:     models.LinkStatusPending,
	}
	if err := s.links.Create(ctx, &link); err != nil {
		return dto.LinkResponse{}, fmt.Errorf("failed to create link: %w", err)
	}

	// Reload so the response carries both user records.
	created, err := s.links.GetByID(ctx, link.ID)
	if err != nil {
		return dto.LinkResponse{}, fmt.Errorf("failed to load link: %w", err)
	}

	s.logger.Info().Uint("link_id", created.ID).Uint("from", actor.ID).Uint("to", req.ToUserID).Str("link_type", req.LinkType).Msg("link requested")

	return dto.NewLinkResponse(created), nil
}

// Accept marks a pending link as accepted. Only the recipient may accept, and
// the requester is notified on their link channel.
func (s *LinkService) Accept(ctx context.Context, actor Actor, linkID uint) (dto.LinkResponse, error) {
	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return dto.LinkResponse{}, fmt.Errorf("failed to load link: %w", err)
	}
	if link.ToUserID != actor.ID {
		return dto.LinkResponse{}, ErrNotAuthorised
	}
	if link.Status != models.LinkStatusPending {
		return dto.LinkResponse{}, fmt.Errorf("%w: link is not pending", ErrInvalidState)
	}

	link.Status = models.LinkStatusAccepted
	if err := s.links.Save(ctx, &link); err != nil {
		return dto.LinkResponse{}, fmt.Errorf("failed to accept link: %w", err)
	}

	s.logger.Info().Uint("link_id", link.ID).Uint("user_id", actor.ID).Msg("link accepted")

	response := dto.NewLinkResponse(link)
	s.events.Dispatch(ctx, DomainEvent{Kind: EventLinkAccepted, Link: &response, ActorID: actor.ID})

	return response, nil
}

// Reject declines a pending link and removes it. The requester is notified
// with a snapshot taken before the row disappears; the deletion goes ahead
// whether or not that notification can be delivered.
func (s *LinkService) Reject(ctx context.Context, actor Actor, linkID uint) error {
	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return fmt.Errorf("failed to load link: %w", err)
	}
	if link.ToUserID != actor.ID {
		return ErrNotAuthorised
	}
	if link.Status != models.LinkStatusPending {
		return fmt.Errorf("%w: link is not pending", ErrInvalidState)
	}

	snapshot := dto.NewLinkResponse(link)
	s.events.Dispatch(ctx, DomainEvent{Kind: EventLinkRejected, Link: &snapshot, ActorID: actor.ID})

	if err := s.links.Delete(ctx, linkID); err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	s.logger.Info().Uint("link_id", linkID).Uint("user_id", actor.ID).Msg("link rejected")

	return nil
}

// Cancel withdraws a pending link the actor sent. Cancelling anything other
// than a pending request is an invalid transition.
func (s *LinkService) Cancel(ctx context.Context, actor Actor, linkID uint) error {
	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return fmt.Errorf("failed to load link: %w", err)
	}
	if link.FromUserID != actor.ID {
		return ErrNotAuthorised
	}
	if link.Status != models.LinkStatusPending {
		return fmt.Errorf("%w: only pending links can be canceled", ErrInvalidState)
	}

	snapshot := dto.NewLinkResponse(link)
	s.events.Dispatch(ctx, DomainEvent{Kind: EventLinkCanceled, Link: &snapshot, ActorID: actor.ID})

	if err := s.links.Delete(ctx, linkID); err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	s.logger.Info().Uint("link_id", linkID).Uint("user_id", actor.ID).Msg("link canceled")

	return nil
}

// Remove deletes an accepted link. Either party may do this; no event is
// emitted since both sides initiated or consented to the relationship ending.
func (s *LinkService) Remove(ctx context.Context, actor Actor, linkID uint) error {
	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return fmt.Errorf("failed to load link: %w", err)
	}
	if link.FromUserID != actor.ID && link.ToUserID != actor.ID {
		return ErrNotAuthorised
	}

	if err := s.links.Delete(ctx, linkID); err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	s.logger.Info().Uint("link_id", linkID).Uint("user_id", actor.ID).Msg("link removed")

	return nil
}

// ListMine returns every link the actor participates in.
func (s *LinkService) ListMine(ctx context.Context, actor Actor) ([]dto.LinkResponse, error) {
	links, err := s.links.ListForUser(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return dto.NewLinkResponseSlice(links), nil
}

// ListPending returns the pending requests awaiting the actor's decision.
func (s *LinkService) ListPending(ctx context.Context, actor Actor) ([]dto.LinkResponse, error) {
	links, err := s.links.ListPendingForUser(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending links: %w", err)
	}
	return dto.NewLinkResponseSlice(links), nil
}
