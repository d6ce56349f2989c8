package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/medico-project/medico-go-api/internal/dto"
	"github.com/medico-project/medico-go-api/internal/models"
	"github.com/medico-project/medico-go-api/internal/observability"
	"github.com/medico-project/medico-go-api/internal/repository"
)

// ChatService serves chat room websocket sessions and message history.
type ChatService interface {
	ServeThread(conn wsTransport, threadID uint, opts SessionOptions)
	History(ctx context.Context, userID uint, query dto.MessageHistoryQuery) ([]dto.ChatMessagePayload, error)
}

type chatService struct {
	threads   repository.ThreadRepository
	messages  repository.MessageRepository
	guard     AccessGuard
	broker    RoomBroker
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	keepAlive time.Duration
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewChatService creates the websocket chat service.
func NewChatService(threads repository.ThreadRepository, messages repository.MessageRepository, guard AccessGuard, broker RoomBroker, validate *validator.Validate, keepAlive time.Duration, logger zerolog.Logger) ChatService {
	return &chatService{
		threads:   threads,
		messages:  messages,
		guard:     guard,
		broker:    broker,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		keepAlive: keepAlive,
		logger:    logger.With().Str("component", "chat_service").Logger(),
		tracer:    otel.Tracer("github.com/medico-project/medico-go-api/internal/service/chat"),
	}
}

// ServeThread runs the full session state machine for one chat connection:
// authorize against the thread's membership and links, join the room, flush
// the unread snapshot, then relay frames until the transport ends. Rejections
// close the connection without sending any payload.
func (s *chatService) ServeThread(conn wsTransport, threadID uint, opts SessionOptions) {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	session := newSession(conn, s.broker, ChatRoom(threadID), opts.UserID, s.keepAlive, s.logger)

	thread, err := s.threads.GetWithParticipants(ctx, threadID)
	if err != nil {
		s.logger.Debug().Err(err).Uint("thread_id", threadID).Msg("rejecting chat session: thread lookup failed")
		session.Close()
		return
	}

	allowed, err := s.guard.CanJoinThread(ctx, opts.UserID, thread)
	if err != nil {
		s.logger.Error().Err(err).Uint("thread_id", threadID).Msg("rejecting chat session: guard check failed")
		session.Close()
		return
	}
	if !allowed {
		session.Close()
		return
	}

	var sender models.User
	for _, participant := range thread.Participants {
		if participant.ID == opts.UserID {
			sender = participant
			break
		}
	}

	session.join()

	if !s.flushUnread(ctx, session, threadID, opts.UserID) {
		session.Close()
		return
	}

	s.logger.Info().Uint("user_id", opts.UserID).Uint("thread_id", threadID).Msg("chat session joined")

	session.run(func(raw []byte) {
		s.handleInbound(ctx, session, sender, threadID, raw)
	})

	s.logger.Info().Uint("user_id", opts.UserID).Uint("thread_id", threadID).Msg("chat session closed")
}

// flushUnread writes the ordered unread snapshot directly to the transport,
// before the writer pump starts. Broadcasts racing with the flush queue up in
// the subscriber buffer and are delivered afterwards, preserving order.
func (s *chatService) flushUnread(ctx context.Context, session *wsSession, threadID, userID uint) bool {
	unread, err := s.messages.UnreadSince(ctx, threadID, userID)
	if err != nil {
		s.logger.Error().Err(err).Uint("thread_id", threadID).Msg("failed to load unread snapshot")
		return false
	}

	for _, message := range unread {
		payload, err := json.Marshal(dto.NewChatMessagePayload(message, nil))
		if err != nil {
			s.logger.Warn().Err(err).Uint("message_id", message.ID).Msg("failed to marshal unread message")
			continue
		}
		if err := session.flush(payload); err != nil {
			s.logger.Debug().Err(err).Uint("thread_id", threadID).Msg("unread snapshot flush interrupted")
			return false
		}
	}

	return true
}

func (s *chatService) handleInbound(ctx context.Context, session *wsSession, sender models.User, threadID uint, raw []byte) {
	var frame dto.ChatInboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.logger.Warn().Err(err).Uint("thread_id", threadID).Msg("dropping malformed chat frame")
		return
	}

	text := strings.TrimSpace(s.sanitizer.Sanitize(frame.Message))
	if text == "" {
		return
	}

	spanCtx, span := s.tracer.Start(ctx, "chat.message", trace.WithAttributes(
		attribute.Int("chat.thread_id", int(threadID)),
		attribute.Int("chat.sender_id", int(sender.ID)),
	))
	defer span.End()

	message, err := s.messages.Append(spanCtx, threadID, sender, text)
	if err != nil {
		// The message could not be durably recorded, so nothing is broadcast
		// and the session ends rather than pretending delivery succeeded.
		span.RecordError(err)
		s.logger.Error().Err(err).Uint("thread_id", threadID).Msg("failed to persist chat message")
		session.Close()
		return
	}

	payload, err := json.Marshal(dto.NewChatMessagePayload(message, frame.TempID))
	if err != nil {
		span.RecordError(err)
		s.logger.Error().Err(err).Uint("message_id", message.ID).Msg("failed to marshal chat message")
		return
	}

	s.broker.Publish(spanCtx, ChatRoom(threadID), payload)
	observability.ChatMessages().Inc()
}

func (s *chatService) History(ctx context.Context, userID uint, query dto.MessageHistoryQuery) ([]dto.ChatMessagePayload, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	thread, err := s.threads.GetWithParticipants(ctx, query.ThreadID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.guard.CanJoinThread(ctx, userID, thread)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrNotAuthorised
	}

	before := time.Time{}
	if query.Before != nil {
		before = *query.Before
	}

	messages, err := s.messages.ListByThread(ctx, query.ThreadID, before, query.Limit)
	if err != nil {
		return nil, err
	}

	payloads := make([]dto.ChatMessagePayload, 0, len(messages))
	for _, message := range messages {
		payloads = append(payloads, dto.NewChatMessagePayload(message, nil))
	}

	return payloads, nil
}
