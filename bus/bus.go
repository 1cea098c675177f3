// Package bus provides the in-process event bus the coordination engine uses
// to surface cross-component events (agent registration, message failures,
// workflow lifecycle) to a transport or observability layer.
package bus

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// EventType identifies the kind of event published on the bus.
type EventType string

const (
	EventAgentRegistered      EventType = "agent.registered"
	EventAgentUnregistered    EventType = "agent.unregistered"
	EventAgentStatusChanged   EventType = "agent.status.changed"
	EventMessageSent          EventType = "message.sent"
	EventMessageReceived      EventType = "message.received"
	EventMessageFailed        EventType = "message.failed"
	EventWorkflowStarted      EventType = "workflow.started"
	EventWorkflowCompleted    EventType = "workflow.completed"
	EventWorkflowFailed       EventType = "workflow.failed"
	EventTopologyChanged      EventType = "network.topology.changed"
	EventCapabilityDiscovered EventType = "capability.discovered"
)

// subscriptionCounter generates unique subscription IDs. An atomic counter
// avoids the collisions a timestamp-based ID would have under concurrency.
var subscriptionCounter int64

// Event is anything that can be published on the bus.
type Event interface {
	Timestamp() time.Time
	Type() EventType
}

// Handler processes a published event.
type Handler func(Event)

// Bus is the event bus interface.
type Bus interface {
	Publish(event Event)
	Subscribe(eventType EventType, handler Handler) string
	Unsubscribe(subscriptionID string)
	Stop()
}

// AsyncBus is a channel-backed Bus implementation. Events are dispatched on
// a background goroutine; each handler runs in its own goroutine with panic
// recovery so one misbehaving subscriber cannot take down the dispatcher.
type AsyncBus struct {
	mu       sync.RWMutex
	handlers map[EventType]map[string]Handler
	events   chan Event
	done     chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

// New creates a started AsyncBus. A nil logger falls back to a no-op logger.
func New(logger *zap.Logger) *AsyncBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &AsyncBus{
		handlers: make(map[EventType]map[string]Handler),
		events:   make(chan Event, 256),
		done:     make(chan struct{}),
		logger:   logger.With(zap.String("component", "event_bus")),
	}
	go b.dispatch()
	return b
}

// Publish enqueues an event for dispatch. If the buffer is full the event is
// dropped rather than blocking the publisher.
func (b *AsyncBus) Publish(event Event) {
	select {
	case b.events <- event:
	case <-b.done:
	default:
		b.logger.Warn("event buffer full, dropping event", zap.String("type", string(event.Type())))
	}
}

// Subscribe registers a handler for an event type and returns a subscription
// ID that can be passed to Unsubscribe.
func (b *AsyncBus) Subscribe(eventType EventType, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]Handler)
	}
	id := fmt.Sprintf("%s-%d", eventType, atomic.AddInt64(&subscriptionCounter, 1))
	b.handlers[eventType][id] = handler
	return id
}

// Unsubscribe removes a subscription. Unknown IDs are ignored.
func (b *AsyncBus) Unsubscribe(subscriptionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, handlers := range b.handlers {
		if _, ok := handlers[subscriptionID]; ok {
			delete(handlers, subscriptionID)
			if len(handlers) == 0 {
				delete(b.handlers, eventType)
			}
			return
		}
	}
}

func (b *AsyncBus) dispatch() {
	for {
		select {
		case event := <-b.events:
			b.mu.RLock()
			src := b.handlers[event.Type()]
			handlers := make([]Handler, 0, len(src))
			for _, h := range src {
				handlers = append(handlers, h)
			}
			b.mu.RUnlock()

			for _, handler := range handlers {
				h := handler
				go func() {
					defer func() {
						if r := recover(); r != nil {
							b.logger.Error("event handler panicked", zap.Any("recover", r))
						}
					}()
					h(event)
				}()
			}
		case <-b.done:
			return
		}
	}
}

// Stop shuts down the dispatcher. Safe to call more than once.
func (b *AsyncBus) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
	})
}
