package event

import "context"

// Priority determines subscriber execution order within one dispatch.
// Higher values execute first. Subscribers with equal priority run in
// registration order.
type Priority int

const (
	// PriorityLow is for audit and logging subscribers that should observe last.
	PriorityLow Priority = -100

	// PriorityNormal is the default priority.
	PriorityNormal Priority = 0

	// PriorityHigh is for subscribers whose effects others depend on.
	PriorityHigh Priority = 100
)

// Handler is the interface for named-event subscribers.
type Handler interface {
	// Handle processes an event. A returned error is counted by the bus and
	// never reaches the publisher.
	Handle(ctx context.Context, evt Event) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, evt Event) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// WildcardHandler observes every published event regardless of its name.
type WildcardHandler interface {
	HandleAny(ctx context.Context, name string, evt Event) error
}

// WildcardFunc is a function adapter for WildcardHandler.
type WildcardFunc func(ctx context.Context, name string, evt Event) error

// HandleAny implements the WildcardHandler interface.
func (f WildcardFunc) HandleAny(ctx context.Context, name string, evt Event) error {
	return f(ctx, name, evt)
}

// Unsubscribe removes exactly one registration. Calling it more than once is a no-op.
type Unsubscribe func()

// ErrorObserver is told about every subscriber failure the bus swallows.
// It runs on the dispatching goroutine and must not block.
type ErrorObserver func(evt Event, err error)
