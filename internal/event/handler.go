package event

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/dshills/gatekeep/internal/event/dispatch"
)

// EventHandler is a stateful handler bound to one event name.
type EventHandler interface {
	// EventName returns the name of the event this handler processes.
	EventName() string

	// Handle processes one event.
	Handle(ctx context.Context, evt Event) error
}

// BeforeHandler is implemented by handlers that want to gate each event.
// Returning false skips Handle for that event; the skip is not an error.
type BeforeHandler interface {
	BeforeHandle(ctx context.Context, evt Event) bool
}

// AfterHandler is implemented by handlers that want a hook after every
// successful Handle.
type AfterHandler interface {
	AfterHandle(ctx context.Context, evt Event)
}

// ErrorHandler is implemented by handlers that want to observe their own
// failures. The error is still returned to the bus and counted there.
type ErrorHandler interface {
	OnError(ctx context.Context, evt Event, err error)
}

// hooked runs an EventHandler with its optional lifecycle hooks.
type hooked struct {
	h EventHandler
}

// Handle implements Handler.
func (w hooked) Handle(ctx context.Context, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &dispatch.PanicError{Value: r, Stack: debug.Stack()}
		}
		if err != nil {
			if eh, ok := w.h.(ErrorHandler); ok {
				eh.OnError(ctx, evt, err)
			}
		}
	}()

	if bh, ok := w.h.(BeforeHandler); ok && !bh.BeforeHandle(ctx, evt) {
		return nil
	}

	if err := w.h.Handle(ctx, evt); err != nil {
		return err
	}

	if ah, ok := w.h.(AfterHandler); ok {
		ah.AfterHandle(ctx, evt)
	}
	return nil
}

// funcHandler adapts a bare function to EventHandler.
type funcHandler struct {
	name string
	fn   HandlerFunc
}

func (f funcHandler) EventName() string { return f.name }

func (f funcHandler) Handle(ctx context.Context, evt Event) error { return f.fn(ctx, evt) }

// Registration ties one handler to one bus subscription with idempotent
// register and unregister.
type Registration struct {
	bus     *Bus
	name    string
	handler Handler
	opts    []SubscribeOption
	once    bool

	mu  sync.Mutex
	sub *subscriber
	gen uint64
}

// NewRegistration creates an unregistered Registration for h on bus b.
// Handlers implementing BeforeHandler, AfterHandler or ErrorHandler have
// those hooks run around every Handle.
func NewRegistration(b *Bus, h EventHandler, opts ...SubscribeOption) *Registration {
	cfg := DefaultSubscriptionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Registration{
		bus:     b,
		name:    h.EventName(),
		handler: hooked{h: h},
		opts:    opts,
		once:    cfg.Once,
	}
}

// NewFuncRegistration creates an unregistered Registration for a function.
func NewFuncRegistration(b *Bus, name string, fn HandlerFunc, opts ...SubscribeOption) *Registration {
	return NewRegistration(b, funcHandler{name: name, fn: fn}, opts...)
}

// EventName returns the event name this registration subscribes to.
func (r *Registration) EventName() string {
	return r.name
}

// Register subscribes the handler. Registering while the subscription is
// live is a no-op. A subscription dropped by the bus (RemoveAll, Close) is
// replaced with a fresh one.
func (r *Registration) Register() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.liveLocked() {
		return nil
	}
	r.sub = nil

	r.gen++
	h := r.handler
	if r.once {
		gen := r.gen
		h = HandlerFunc(func(ctx context.Context, evt Event) error {
			r.fired(gen)
			return r.handler.Handle(ctx, evt)
		})
	}

	sub, err := r.bus.subscribe(r.name, h, r.opts...)
	if err != nil {
		return err
	}
	r.sub = sub
	return nil
}

// Unregister removes the subscription. Unregistering when not registered is a no-op.
func (r *Registration) Unregister() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sub == nil {
		return
	}
	r.bus.registry.remove(r.sub)
	r.sub = nil
}

// Registered reports whether the handler is currently subscribed on the bus.
func (r *Registration) Registered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.liveLocked()
}

// liveLocked reports whether the subscription is still in the bus registry.
// A consumed once-registration is never live. r.mu must be held.
func (r *Registration) liveLocked() bool {
	return r.sub != nil && r.bus.registry.contains(r.sub)
}

// fired marks a once-registration as consumed by the bus.
func (r *Registration) fired(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen == gen {
		r.sub = nil
	}
}
