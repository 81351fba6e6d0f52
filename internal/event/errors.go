package event

import (
	"errors"
	"fmt"
	"time"

	"github.com/dshills/gatekeep/internal/event/dispatch"
)

// Sentinel errors for the event bus.
var (
	// ErrBusClosed is returned when operations are attempted on a closed bus.
	ErrBusClosed = errors.New("event bus is closed")

	// ErrInvalidEventName is returned when an event name is empty.
	ErrInvalidEventName = errors.New("invalid event name")

	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrHandlerPanic matches subscriber panics recovered by the bus.
	ErrHandlerPanic = dispatch.ErrHandlerPanic

	// ErrWaitTimeout matches any *WaitTimeoutError via errors.Is.
	ErrWaitTimeout = errors.New("timed out waiting for event")
)

// HandlerError wraps a swallowed subscriber failure with dispatch context.
type HandlerError struct {
	// SubscriptionID is the ID of the subscription whose handler failed.
	SubscriptionID string

	// EventName is the name of the event being dispatched.
	EventName string

	// Wildcard is true if the failing subscriber was a wildcard subscriber.
	Wildcard bool

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return "handler error for subscription " + e.SubscriptionID + " on event " + e.EventName + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// WaitTimeoutError is returned by WaitFor when the timer wins the race.
type WaitTimeoutError struct {
	// EventName is the event that was being waited for.
	EventName string

	// Timeout is the duration that elapsed.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for event %q", e.Timeout, e.EventName)
}

// Is allows errors.Is to match WaitTimeoutError with ErrWaitTimeout.
func (e *WaitTimeoutError) Is(target error) bool {
	return target == ErrWaitTimeout
}
