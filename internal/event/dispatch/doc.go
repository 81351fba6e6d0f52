// Package dispatch provides the execution primitives used by the event bus.
//
// # Executor
//
// Executor runs a single subscriber callback. It recovers from panics,
// converting them into *PanicError values, and records how long the callback
// took. A misbehaving subscriber therefore surfaces as an ordinary error at the
// dispatch boundary and never unwinds into the publisher.
//
// # Scheduler
//
// Scheduler defers whole dispatch sequences to a pooled goroutine. It is
// backed by an ants worker pool and tracks in-flight work so callers can wait
// for deferred dispatches to settle:
//
//	s, err := dispatch.NewScheduler(dispatch.WithPoolSize(8))
//	if err != nil {
//	    return err
//	}
//	_ = s.Submit(func() { deliver(evt) })
//	_ = s.Wait(ctx)
//	_ = s.Release(time.Second)
package dispatch
