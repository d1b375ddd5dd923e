// Package messaging provides the in-process message bus that carries domain
// events between application services.
package messaging

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/tablewise/server/internal/ports/outbound"
)

// EventDispatcher delivers messages synchronously to every handler of a
// topic. A failing handler is logged and does not stop the others, and
// Publish never reports handler failures to the publisher.
type EventDispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]outbound.MessageHandler
	log      *zap.Logger
}

// NewEventDispatcher creates a new event dispatcher
func NewEventDispatcher(log *zap.Logger) *EventDispatcher {
	return &EventDispatcher{
		handlers: make(map[string][]outbound.MessageHandler),
		log:      log.Named("events"),
	}
}

var _ outbound.MessageBus = (*EventDispatcher)(nil)

// Publish dispatches a message to the topic's handlers
func (d *EventDispatcher) Publish(ctx context.Context, topic string, message outbound.Message) error {
	d.mu.RLock()
	handlers := append([]outbound.MessageHandler(nil), d.handlers[topic]...)
	d.mu.RUnlock()

	if len(handlers) == 0 {
		d.log.Debug("No handlers registered for event", zap.String("event", topic))
		return nil
	}

	for _, handler := range handlers {
		if err := d.invoke(ctx, handler, message); err != nil {
			d.log.Error("Failed to handle event",
				zap.String("event", topic),
				zap.String("message_id", message.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// invoke runs one handler, turning a panic into a logged failure
func (d *EventDispatcher) invoke(ctx context.Context, handler outbound.MessageHandler, message outbound.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Event handler panicked", zap.String("event", message.Type), zap.Any("panic", r))
		}
	}()
	return handler(ctx, message)
}

// Subscribe registers an event handler
func (d *EventDispatcher) Subscribe(_ context.Context, topic string, handler outbound.MessageHandler) error {
	d.mu.Lock()
	d.handlers[topic] = append(d.handlers[topic], handler)
	d.mu.Unlock()

	d.log.Debug("Registered event handler", zap.String("event", topic))
	return nil
}

// Unsubscribe drops every handler of a topic
func (d *EventDispatcher) Unsubscribe(_ context.Context, topic string) error {
	d.mu.Lock()
	delete(d.handlers, topic)
	d.mu.Unlock()
	return nil
}
