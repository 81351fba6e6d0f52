package dispatch

import "time"

// Result represents the outcome of one callback execution.
type Result struct {
	// Err is the error returned by the callback, or a *PanicError if it panicked.
	Err error

	// Panicked is true if the callback panicked.
	Panicked bool

	// Duration is how long the callback took to execute.
	Duration time.Duration
}

// IsSuccess returns true if the callback completed without error or panic.
func (r Result) IsSuccess() bool {
	return r.Err == nil && !r.Panicked
}

// IsError returns true if the callback returned an error (not panic).
func (r Result) IsError() bool {
	return r.Err != nil && !r.Panicked
}

// IsPanic returns true if the callback panicked.
func (r Result) IsPanic() bool {
	return r.Panicked
}

// PanicHandler is called when a callback panics during execution.
// It receives the panic value and the stack trace.
type PanicHandler func(panicValue any, stack []byte)
