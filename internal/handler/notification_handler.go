package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/medico-project/medico-go-api/internal/service"
)

// NotificationHandler wires the per-user notification websocket channels.
type NotificationHandler struct {
	service service.NotificationService
	logger  zerolog.Logger
}

// NewNotificationHandler creates a notification handler instance.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("component", "notification_handler").Logger(),
	}
}

// Register binds the notification websocket routes. The user id path segment
// is advisory: the channel is always bound to the authenticated user, and a
// mismatching segment is rejected by the guard.
func (h *NotificationHandler) Register(ws fiber.Router) {
	ws.Get("/appointments/:userID?", websocket.New(h.handleAppointments))
	ws.Get("/links/:userID?", websocket.New(h.handleLinks))
}

func (h *NotificationHandler) handleAppointments(conn *websocket.Conn) {
	userID, owner, ok := notificationIdentity(conn)
	if !ok {
		rejectWebsocket(conn)
		return
	}

	h.logger.Info().Uint("user_id", userID).Msg("appointment channel connected")
	h.service.ServeAppointments(conn, owner, websocketSessionOptions(conn, userID))
	h.logger.Info().Uint("user_id", userID).Msg("appointment channel disconnected")
}

func (h *NotificationHandler) handleLinks(conn *websocket.Conn) {
	userID, owner, ok := notificationIdentity(conn)
	if !ok {
		rejectWebsocket(conn)
		return
	}

	h.logger.Info().Uint("user_id", userID).Msg("link channel connected")
	h.service.ServeLinks(conn, owner, websocketSessionOptions(conn, userID))
	h.logger.Info().Uint("user_id", userID).Msg("link channel disconnected")
}

// notificationIdentity resolves the authenticated user and the channel owner
// the route asked for, defaulting the owner to the caller.
func notificationIdentity(conn *websocket.Conn) (userID, owner uint, ok bool) {
	userID, ok = websocketUserID(conn)
	if !ok {
		return 0, 0, false
	}

	owner = userID
	if raw := strings.TrimSpace(conn.Params("userID")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0, 0, false
		}
		owner = uint(parsed)
	}
	return userID, owner, true
}
