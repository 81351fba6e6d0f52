package event

import (
	"context"
	"slices"
	"sync"
	"time"
)

// resetDrainTimeout bounds how long ResetDefault waits for the old bus.
const resetDrainTimeout = 5 * time.Second

var (
	defaultMu   sync.Mutex
	defaultBus  *Bus
	defaultOpts []BusOption
)

// Default returns the process-wide bus, creating it on first use.
// Services should prefer a bus passed in at construction; Default exists for
// simple wiring and tests.
func Default() *Bus {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultBus == nil {
		defaultBus = NewBus(defaultOpts...)
	}
	return defaultBus
}

// SetDefaultOptions sets the options used the next time the process-wide bus
// is constructed, either lazily by Default or by ResetDefault.
func SetDefaultOptions(opts ...BusOption) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultOpts = slices.Clone(opts)
}

// ResetDefault tears down the process-wide bus and installs a new, empty one.
// Every subscriber and wildcard subscriber of the old bus is removed and the
// old bus is closed before ResetDefault returns. Queued dispatches of the old
// bus are drained in the background, so a subscriber of the old bus may call
// ResetDefault without waiting on itself.
func ResetDefault() {
	defaultMu.Lock()
	old := defaultBus
	defaultBus = NewBus(defaultOpts...)
	defaultMu.Unlock()

	if old == nil || !old.closed.CompareAndSwap(false, true) {
		return
	}
	old.RemoveAll()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), resetDrainTimeout)
		defer cancel()
		if err := old.shutdown(ctx); err != nil {
			old.logger.WithError(err).Warn("previous default bus did not drain")
		}
	}()
}
