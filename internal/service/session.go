package service

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/medico-project/medico-go-api/internal/observability"
)

// wsTransport is the slice of a websocket connection the session layer uses.
// *websocket.Conn satisfies it; tests drive sessions with an in-memory fake.
type wsTransport interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// SessionOptions carries identity and tracing data extracted during the
// websocket upgrade. Authentication already happened by the time a service
// sees these; an unresolved identity never reaches a session.
type SessionOptions struct {
	UserID        uint
	Username      string
	CorrelationID string
	Context       context.Context
}

type sessionState int

const (
	stateAuthorizing sessionState = iota
	stateJoined
	stateClosed
)

// wsSession owns one connection's lifecycle: authorize, join, relay, close.
// Close is the single terminal transition and runs exactly once no matter
// how many paths race into it.
type wsSession struct {
	conn      wsTransport
	broker    RoomBroker
	roomID    string
	sub       *RoomSubscriber
	keepAlive time.Duration
	logger    zerolog.Logger

	closed chan struct{}
	once   sync.Once

	// state is written by the session goroutine before the pumps start and
	// read by Close afterwards; rejection paths close from the same
	// goroutine, so no lock is needed.
	state sessionState
}

func newSession(conn wsTransport, broker RoomBroker, roomID string, userID uint, keepAlive time.Duration, logger zerolog.Logger) *wsSession {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}

	return &wsSession{
		conn:      conn,
		broker:    broker,
		roomID:    roomID,
		sub:       NewRoomSubscriber(userID),
		keepAlive: keepAlive,
		logger:    logger,
		closed:    make(chan struct{}),
		state:     stateAuthorizing,
	}
}

// join registers the session with the broker. Must be called before run.
func (s *wsSession) join() {
	s.broker.Join(s.roomID, s.sub)
	s.state = stateJoined
	observability.RealtimeConnections().Inc()
}

// flush writes a payload straight to the transport. Only valid before run
// starts the writer pump; used for the unread snapshot on join.
func (s *wsSession) flush(payload []byte) error {
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// run starts the writer pump and blocks on the reader until the connection
// ends. handleInbound is invoked for every raw frame received.
func (s *wsSession) run(handleInbound func([]byte)) {
	go s.writePump()
	s.readPump(handleInbound)
}

func (s *wsSession) readPump(handle func([]byte)) {
	defer s.Close()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.logger.Debug().Err(err).Str("room", s.roomID).Msg("session read loop ended")
			return
		}
		handle(raw)
	}
}

func (s *wsSession) writePump() {
	defer s.Close()

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case payload := <-s.sub.Receive():
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Debug().Err(err).Str("room", s.roomID).Msg("session write loop ended")
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				s.logger.Debug().Err(err).Str("room", s.roomID).Msg("session keepalive failed")
				return
			}
		case <-s.closed:
			return
		}
	}
}

// Close deregisters and releases the connection, exactly once. Reachable from
// rejection, either pump, or an external transport timeout hook.
func (s *wsSession) Close() {
	s.once.Do(func() {
		close(s.closed)
		if s.state == stateJoined {
			s.broker.Leave(s.roomID, s.sub)
			observability.RealtimeConnections().Dec()
		}
		s.state = stateClosed
		_ = s.conn.Close()
	})
}
