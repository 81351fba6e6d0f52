// Package event provides the in-process event bus for gatekeep.
//
// Application services publish domain events after completing their own work;
// observers such as the structured event log and the metrics collector
// subscribe to them. The bus performs no I/O of its own.
//
// # Publishing
//
// Every Publish builds a fresh Event with a new ID and timestamp and counts it
// before dispatching:
//
//	id, err := bus.Publish(ctx, "user:registered", payload)
//
// By default Publish is synchronous: it returns after every subscriber has
// been attempted. Async(true), or a bus built WithAsync(true), queues the
// dispatch on a worker pool and returns the event ID immediately.
//
// # Dispatch Order
//
// For one publish:
//
//  1. Wildcard subscribers (OnAny) run first, in registration order.
//  2. Named subscribers run one at a time, by descending Priority; equal
//     priorities run in registration order.
//
// Each subscriber invocation is isolated. A returned error or a panic is
// counted in Stats.TotalErrors, reported to the error observer, and never
// reaches the publisher or the remaining subscribers.
//
// Dispatch iterates over a snapshot of the subscriber list, and no lock is
// held while subscribers run. Subscribers may publish, subscribe and
// unsubscribe from inside a handler.
//
// # Once Subscribers
//
// Once (or WithOnce) subscribers are claimed atomically before invocation and
// removed right after it, whether it succeeded or failed. Concurrent publishes
// can never run one twice.
//
// # Waiting
//
// WaitFor turns the next occurrence of an event into a return value:
//
//	evt, err := bus.WaitFor(ctx, "user:login", time.Second)
//	if errors.Is(err, event.ErrWaitTimeout) {
//	    // nothing arrived in time
//	}
//
// # Handler Lifecycle
//
// Registration wraps an EventHandler with idempotent Register and Unregister
// and runs the optional BeforeHandler, AfterHandler and ErrorHandler hooks
// around each event.
//
// # Process-wide Bus
//
// Default lazily constructs a shared bus and ResetDefault replaces it with an
// empty one. Services take a *Bus at construction; the shared instance is for
// simple wiring and tests.
package event
