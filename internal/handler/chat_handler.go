package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/medico-project/medico-go-api/internal/dto"
	"github.com/medico-project/medico-go-api/internal/middleware"
	"github.com/medico-project/medico-go-api/internal/service"
	"github.com/medico-project/medico-go-api/internal/utils"
)

// ChatHandler wires chat endpoints including the websocket upgrade.
type ChatHandler struct {
	service   service.ChatService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewChatHandler creates a chat handler instance.
func NewChatHandler(service service.ChatService, validator *validator.Validate, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds chat routes under the provided router groups. The ws group is
// expected to sit behind the upgrade gate and JWT middleware.
func (h *ChatHandler) Register(ws fiber.Router, api fiber.Router) {
	ws.Get("/chat/:threadID", websocket.New(h.handleConnection))
	api.Get("/chat/history", h.history)
}

func (h *ChatHandler) handleConnection(conn *websocket.Conn) {
	userID, ok := websocketUserID(conn)
	if !ok {
		rejectWebsocket(conn)
		return
	}

	threadID, err := strconv.ParseUint(strings.TrimSpace(conn.Params("threadID")), 10, 64)
	if err != nil {
		rejectWebsocket(conn)
		return
	}

	opts := websocketSessionOptions(conn, userID)

	h.logger.Info().Uint("user_id", userID).Uint64("thread_id", threadID).Msg("chat websocket connected")
	h.service.ServeThread(conn, uint(threadID), opts)
	h.logger.Info().Uint("user_id", userID).Uint64("thread_id", threadID).Msg("chat websocket disconnected")
}

func (h *ChatHandler) history(c *fiber.Ctx) error {
	threadID, err := parseQueryInt(c, "thread_id")
	if err != nil || threadID <= 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "thread_id required")
	}

	var beforePtr *time.Time
	if before := c.Query("before"); before != "" {
		parsed, err := time.Parse(time.RFC3339, before)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid before timestamp")
		}
		beforePtr = &parsed
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	query := dto.MessageHistoryQuery{
		ThreadID: uint(threadID),
		Before:   beforePtr,
		Limit:    limit,
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))

	messages, err := h.service.History(ctx, userIDFromContext(c), query)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "chat history", messages)
}

// rejectWebsocket closes an unacceptable connection with a bare close code:
// rejected sockets get no application-level explanation.
func rejectWebsocket(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, ""))
	_ = conn.Close()
}

func websocketUserID(conn *websocket.Conn) (uint, bool) {
	if value := conn.Locals("user_id"); value != nil {
		switch v := value.(type) {
		case uint:
			return v, v != 0
		case int:
			if v > 0 {
				return uint(v), true
			}
		case float64:
			if v > 0 {
				return uint(v), true
			}
		}
	}
	return 0, false
}

func websocketSessionOptions(conn *websocket.Conn, userID uint) service.SessionOptions {
	username := ""
	if value, ok := conn.Locals("username").(string); ok {
		username = value
	}
	correlation := ""
	if value, ok := conn.Locals("correlation_id").(string); ok {
		correlation = value
	}
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	return service.SessionOptions{
		UserID:        userID,
		Username:      username,
		CorrelationID: correlation,
		Context:       baseCtx,
	}
}
