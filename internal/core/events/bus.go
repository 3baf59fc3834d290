package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a fact raised by a portal service after its write has committed.
type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
}

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func newBaseEvent(eventType string) BaseEvent {
	return BaseEvent{ID: uuid.NewString(), Type: eventType, Timestamp: time.Now()}
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

type Handler func(ctx context.Context, event Event) error

// Publisher is the side of the bus services depend on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventBus fans events out to in-process subscribers. Notification delivery is its only consumer,
// so a failing handler is logged and never rolls back the write that raised the event.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
	inflight    sync.WaitGroup
	lg          *slog.Logger
}

func NewEventBus(lg *slog.Logger) *EventBus {
	if lg == nil {
		lg = slog.Default()
	}
	return &EventBus{subscribers: make(map[string][]Handler), lg: lg}
}

func (b *EventBus) Subscribe(eventType string, h Handler) {
	b.mu.Lock()
	b.subscribers[eventType] = append(b.subscribers[eventType], h)
	n := len(b.subscribers[eventType])
	b.mu.Unlock()

	b.lg.Debug("event subscriber added", "event_type", eventType, "subscribers", n)
}

func (b *EventBus) handlersFor(eventType string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := b.subscribers[eventType]
	out := make([]Handler, len(hs))
	copy(out, hs)
	return out
}

// Publish starts every subscriber on its own goroutine and returns immediately.
// Subscribers keep the values of ctx but not its deadline.
func (b *EventBus) Publish(ctx context.Context, event Event) error {
	hs := b.handlersFor(event.EventType())
	if len(hs) == 0 {
		b.lg.Debug("event has no subscribers", "event_type", event.EventType())
		return nil
	}

	b.lg.Info("event published",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"subscribers", len(hs))

	detached := context.WithoutCancel(ctx)
	b.inflight.Add(len(hs))
	for _, h := range hs {
		go func(h Handler) {
			defer b.inflight.Done()
			if err := b.deliver(detached, h, event); err != nil {
				b.lg.Error("event subscriber failed",
					"event_type", event.EventType(),
					"event_id", event.EventID(),
					"error", err)
			}
		}(h)
	}
	return nil
}

// PublishSync runs subscribers in order on the caller's goroutine and stops at the first error.
func (b *EventBus) PublishSync(ctx context.Context, event Event) error {
	for _, h := range b.handlersFor(event.EventType()) {
		if err := b.deliver(ctx, h, event); err != nil {
			return fmt.Errorf("deliver %s: %w", event.EventType(), err)
		}
	}
	return nil
}

func (b *EventBus) deliver(ctx context.Context, h Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()
	return h(ctx, event)
}

// Wait blocks until every subscriber started by Publish has returned.
func (b *EventBus) Wait() {
	b.inflight.Wait()
}
