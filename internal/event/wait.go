package event

import (
	"context"
	"time"
)

// WaitFor blocks until the next event named name is published and returns it.
//
// If timeout is positive, a *WaitTimeoutError is returned once it elapses.
// If ctx is done first, ctx.Err() is returned. In every case the temporary
// subscription is removed and the timer stopped before WaitFor returns.
func (b *Bus) WaitFor(ctx context.Context, name string, timeout time.Duration) (Event, error) {
	got := make(chan Event, 1)

	unsubscribe, err := b.Once(name, HandlerFunc(func(_ context.Context, evt Event) error {
		// Buffered for the single delivery a once-subscriber can receive.
		got <- evt
		return nil
	}))
	if err != nil {
		return Event{}, err
	}
	defer unsubscribe()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case evt := <-got:
		return evt, nil
	case <-expired:
		return Event{}, &WaitTimeoutError{EventName: name, Timeout: timeout}
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}
