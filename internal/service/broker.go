package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medico-project/medico-go-api/internal/observability"
)

const subscriberBufferSize = 32

// Room identifier helpers. The three namespaces never collide.
func ChatRoom(threadID uint) string      { return fmt.Sprintf("chat:%d", threadID) }
func AppointmentRoom(userID uint) string { return fmt.Sprintf("appointments:%d", userID) }
func LinkRoom(userID uint) string        { return fmt.Sprintf("links:%d", userID) }

func roomKind(roomID string) string {
	if idx := strings.IndexByte(roomID, ':'); idx > 0 {
		return roomID[:idx]
	}
	return "unknown"
}

// RoomSubscriber is a single connection's mailbox inside the broker. Payloads
// are handed over with a non-blocking send so slow consumers never stall a
// broadcast; a full buffer means the payload is dropped for that subscriber.
type RoomSubscriber struct {
	UserID uint
	send   chan []byte
}

// NewRoomSubscriber allocates a subscriber mailbox for the given user.
func NewRoomSubscriber(userID uint) *RoomSubscriber {
	return &RoomSubscriber{
		UserID: userID,
		send:   make(chan []byte, subscriberBufferSize),
	}
}

// Receive exposes the subscriber's outbound payload stream.
func (s *RoomSubscriber) Receive() <-chan []byte { return s.send }

// RoomBroker tracks room membership and delivers payloads to every
// subscriber joined to a room. Join and Leave are idempotent. Publish is
// best-effort: a mid-close or saturated subscriber misses the payload
// without failing the call.
type RoomBroker interface {
	Join(roomID string, sub *RoomSubscriber)
	Leave(roomID string, sub *RoomSubscriber)
	Publish(ctx context.Context, roomID string, payload []byte)
	Start(ctx context.Context)
}

// brokerEnvelope carries a payload across process boundaries. Source is a
// per-node id used to skip payloads the node already delivered locally.
type brokerEnvelope struct {
	Source  string          `json:"source"`
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sent_at"`
}

type roomBroker struct {
	mu    sync.RWMutex
	rooms map[string]map[*RoomSubscriber]struct{}

	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	nodeID       string
}

// NewRoomBroker constructs the broadcast layer. Both redisClient and
// natsConn may be nil, in which case the broker is purely in-process and a
// single node satisfies the full contract on its own.
func NewRoomBroker(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) RoomBroker {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":rooms"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".rooms"
	}

	return &roomBroker{
		rooms:        make(map[string]map[*RoomSubscriber]struct{}),
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "room_broker").Logger(),
		nodeID:       uuid.NewString(),
	}
}

func (b *roomBroker) Start(ctx context.Context) {
	if b.redis != nil && b.redisChannel != "" {
		go b.consumeRedis(ctx)
	}
	if b.nats != nil && b.natsSubject != "" {
		go b.consumeNATS(ctx)
	}
}

func (b *roomBroker) Join(roomID string, sub *RoomSubscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.rooms[roomID]; !exists {
		b.rooms[roomID] = make(map[*RoomSubscriber]struct{})
	}
	b.rooms[roomID][sub] = struct{}{}
	b.logger.Debug().Str("room", roomID).Uint("user_id", sub.UserID).Msg("subscriber joined room")
}

func (b *roomBroker) Leave(roomID string, sub *RoomSubscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.rooms[roomID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.rooms, roomID)
		}
	}
	b.logger.Debug().Str("room", roomID).Uint("user_id", sub.UserID).Msg("subscriber left room")
}

func (b *roomBroker) Publish(ctx context.Context, roomID string, payload []byte) {
	b.deliver(roomID, payload)

	if err := b.bridge(ctx, roomID, payload); err != nil {
		observability.BridgePublishFailures().Inc()
		b.logger.Warn().Err(err).Str("room", roomID).Msg("failed to publish room payload to bridge")
	}
}

// deliver fans a payload out to the room's current subscribers. Channel sends
// never block, so no I/O happens while the membership lock is held.
func (b *roomBroker) deliver(roomID string, payload []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.rooms[roomID] {
		select {
		case sub.send <- payload:
		default:
			observability.BroadcastDrops().WithLabelValues(roomKind(roomID)).Inc()
			b.logger.Warn().Str("room", roomID).Uint("user_id", sub.UserID).Msg("dropping payload for slow subscriber")
		}
	}
}

func (b *roomBroker) bridge(ctx context.Context, roomID string, payload []byte) error {
	if (b.redis == nil || b.redisChannel == "") && (b.nats == nil || b.natsSubject == "") {
		return nil
	}

	envelope := brokerEnvelope{
		Source:  b.nodeID,
		Room:    roomID,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	}

	raw, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	if b.redis != nil && b.redisChannel != "" {
		if err := b.redis.Publish(ctx, b.redisChannel, raw).Err(); err != nil {
			return err
		}
	}

	if b.nats != nil && b.natsSubject != "" {
		if err := b.nats.Publish(b.natsSubject, raw); err != nil {
			return err
		}
	}

	return nil
}

func (b *roomBroker) consumeRedis(ctx context.Context) {
	pubsub := b.redis.Subscribe(ctx, b.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			b.logger.Error().Err(err).Msg("room broker redis subscription closed")
			return
		}
		b.handleEnvelope([]byte(msg.Payload))
	}
}

func (b *roomBroker) consumeNATS(ctx context.Context) {
	sub, err := b.nats.Subscribe(b.natsSubject, func(msg *nats.Msg) {
		b.handleEnvelope(msg.Data)
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to subscribe to nats rooms subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			b.logger.Warn().Err(err).Msg("failed to drain rooms nats subscription")
		}
	}()
}

func (b *roomBroker) handleEnvelope(raw []byte) {
	var envelope brokerEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		b.logger.Warn().Err(err).Msg("invalid room broker envelope")
		return
	}

	if envelope.Source == b.nodeID {
		return
	}

	b.deliver(envelope.Room, envelope.Payload)
}
