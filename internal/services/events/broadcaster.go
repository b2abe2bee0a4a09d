package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/adventure-engine/pkg/game"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeEnvStateUpdated      EventType = "envstate.updated"
	EventTypeCompressionCompleted EventType = "compression.completed"
	EventTypeTaskFailed           EventType = "task.failed"
)

// Event is pushed to clients watching a session
type Event struct {
	Type      EventType      `json:"type"`
	SessionID string         `json:"session_id"`
	Data      map[string]any `json:"data,omitempty"`
}

// Publisher is what background jobs need to announce results.
type Publisher interface {
	Publish(ctx context.Context, sessionID uuid.UUID, event Event) error
}

// Subscriber streams events for one session until ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context, sessionID uuid.UUID) (<-chan Event, error)
}

func channelName(sessionID uuid.UUID) string {
	return fmt.Sprintf("session-events:%s", sessionID.String())
}

// EnvStateUpdated builds the event announcing a fresh snapshot.
func EnvStateUpdated(sessionID uuid.UUID, turn int, env game.EnvState) Event {
	return Event{
		Type:      EventTypeEnvStateUpdated,
		SessionID: sessionID.String(),
		Data:      map[string]any{"turn": turn, "env_state": env},
	}
}

// CompressionCompleted builds the event announcing a new summary.
func CompressionCompleted(sessionID uuid.UUID, turn int, summary string) Event {
	return Event{
		Type:      EventTypeCompressionCompleted,
		SessionID: sessionID.String(),
		Data:      map[string]any{"turn": turn, "compressed_history": summary},
	}
}

// TaskFailed builds the event announcing a failed background job.
func TaskFailed(sessionID uuid.UUID, taskType string, err error) Event {
	return Event{
		Type:      EventTypeTaskFailed,
		SessionID: sessionID.String(),
		Data:      map[string]any{"type": taskType, "error": err.Error()},
	}
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

var (
	_ Publisher  = (*Broadcaster)(nil)
	_ Subscriber = (*Broadcaster)(nil)
)

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Publish sends event on the session's channel
func (b *Broadcaster) Publish(ctx context.Context, sessionID uuid.UUID, event Event) error {
	channel := channelName(sessionID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published", "channel", channel, "event_type", event.Type)
	return nil
}

// Subscribe relays the session's channel until ctx is done
func (b *Broadcaster) Subscribe(ctx context.Context, sessionID uuid.UUID) (<-chan Event, error) {
	pubsub := b.redisClient.Subscribe(ctx, channelName(sessionID))
	// Wait for the subscription to be confirmed so no event is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Warn("Dropping malformed event", "error", err, "channel", msg.Channel)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Hub is an in-process Publisher and Subscriber for single-process setups.
type Hub struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]map[chan Event]struct{}
	logger *slog.Logger
}

var (
	_ Publisher  = (*Hub)(nil)
	_ Subscriber = (*Hub)(nil)
)

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[chan Event]struct{}), logger: logger}
}

// Publish delivers event to current subscribers. Slow subscribers miss it.
func (h *Hub) Publish(ctx context.Context, sessionID uuid.UUID, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[sessionID] {
		select {
		case ch <- event:
		default:
			h.logger.Warn("Subscriber too slow, dropping event", "session_id", sessionID, "event_type", event.Type)
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, sessionID uuid.UUID) (<-chan Event, error) {
	ch := make(chan Event, 16)
	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan Event]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[sessionID], ch)
		if len(h.subs[sessionID]) == 0 {
			delete(h.subs, sessionID)
		}
		close(ch)
	}()
	return ch, nil
}
