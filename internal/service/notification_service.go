package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// NotificationService serves the per-user notification channel websockets.
// Both channels have the same shape: the room is bound to the authenticated
// identity, inbound frames are ignored, and every payload published to the
// room is forwarded to the transport verbatim. The owner argument is the
// channel owner the client asked for; anything but the caller's own id is
// rejected by the guard.
type NotificationService interface {
	ServeAppointments(conn wsTransport, owner uint, opts SessionOptions)
	ServeLinks(conn wsTransport, owner uint, opts SessionOptions)
}

type notificationService struct {
	guard     AccessGuard
	broker    RoomBroker
	keepAlive time.Duration
	logger    zerolog.Logger
}

// NewNotificationService creates the notification channel service.
func NewNotificationService(guard AccessGuard, broker RoomBroker, keepAlive time.Duration, logger zerolog.Logger) NotificationService {
	return &notificationService{
		guard:     guard,
		broker:    broker,
		keepAlive: keepAlive,
		logger:    logger.With().Str("component", "notification_service").Logger(),
	}
}

func (s *notificationService) ServeAppointments(conn wsTransport, owner uint, opts SessionOptions) {
	greeting := fmt.Sprintf("Connected to appointment notifications for user %d!", opts.UserID)
	s.serve(conn, AppointmentRoom(opts.UserID), owner, opts, greeting)
}

func (s *notificationService) ServeLinks(conn wsTransport, owner uint, opts SessionOptions) {
	s.serve(conn, LinkRoom(opts.UserID), owner, opts, "")
}

func (s *notificationService) serve(conn wsTransport, roomID string, owner uint, opts SessionOptions, greeting string) {
	// The requested owner is advisory; the room is bound to the
	// authenticated identity regardless.
	session := newSession(conn, s.broker, roomID, opts.UserID, s.keepAlive, s.logger)

	if !s.guard.CanJoinUserChannel(opts.UserID, owner) {
		session.Close()
		return
	}

	session.join()

	if greeting != "" {
		payload, err := json.Marshal(map[string]string{"message": greeting})
		if err == nil {
			if err := session.flush(payload); err != nil {
				session.Close()
				return
			}
		}
	}

	s.logger.Info().Uint("user_id", opts.UserID).Str("room", roomID).Msg("notification session joined")

	// Notification channels are outbound-only; inbound frames are drained
	// and discarded so the read loop still notices transport closure.
	session.run(func([]byte) {})

	s.logger.Info().Uint("user_id", opts.UserID).Str("room", roomID).Msg("notification session closed")
}
