package events

import (
	"context"
	"log/slog"
	"sync"
)

// InMemoryEmitter is a simple implementation of the Emitter interface that
// stores registered handlers in memory and dispatches events to them.
type InMemoryEmitter struct {
	handlers []Handler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewInMemoryEmitter creates a new instance of InMemoryEmitter.
func NewInMemoryEmitter(logger *slog.Logger) *InMemoryEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEmitter{
		handlers: make([]Handler, 0),
		logger:   logger.With(slog.String("component", "room_event_emitter")),
	}
}

// Ensure InMemoryEmitter implements Emitter interface
var _ Emitter = (*InMemoryEmitter)(nil)

// RegisterHandler adds a new handler to receive events.
func (e *InMemoryEmitter) RegisterHandler(handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
	e.logger.Debug("registered room event handler", "handler_count", len(e.handlers))
}

// Emit publishes the given event to all registered handlers.
// If any handler returns an error, the event is still delivered to all
// other handlers, and the first error encountered is returned.
func (e *InMemoryEmitter) Emit(ctx context.Context, event RoomEvent) error {
	e.mu.RLock()
	handlers := make([]Handler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	if len(handlers) == 0 {
		e.logger.Debug("no handlers registered for room event",
			"event_type", event.Type,
			"task_id", event.TaskID)
		return nil
	}

	var firstErr error
	for i, handler := range handlers {
		if err := handler.HandleRoomEvent(ctx, event); err != nil {
			e.logger.Error("handler failed to process room event",
				"error", err,
				"handler_index", i,
				"event_type", event.Type,
				"task_id", event.TaskID)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
