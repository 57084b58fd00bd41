package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// A nil bus is a no-op so components can run without one.
// Usage: bus.Publish(FrameForwardedEvent{...})
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}

	// Use type switch to call the generic Publish with the correct type
	switch e := ev.(type) {
	case FrameForwardedEvent:
		event.Publish(b.dispatcher, e)
	case FrameDroppedEvent:
		event.Publish(b.dispatcher, e)
	case IndexSkippedEvent:
		event.Publish(b.dispatcher, e)
	case CheckpointSavedEvent:
		event.Publish(b.dispatcher, e)
	case PipelineStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives (type inference)
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e CheckpointSavedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(FrameForwardedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FrameDroppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(IndexSkippedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CheckpointSavedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PipelineStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}
