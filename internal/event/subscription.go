package event

import (
	"sync/atomic"
)

// subscriptionState tracks whether a once-subscriber has been claimed.
type subscriptionState int32

const (
	// subscriptionActive means the subscriber is eligible for dispatch.
	subscriptionActive subscriptionState = iota

	// subscriptionFired means a once-subscriber has been claimed by a dispatch.
	subscriptionFired
)

// String returns a human-readable state name.
func (s subscriptionState) String() string {
	switch s {
	case subscriptionActive:
		return "active"
	case subscriptionFired:
		return "fired"
	default:
		return "unknown"
	}
}

// SubscriptionConfig contains configuration for a subscription.
type SubscriptionConfig struct {
	// Priority determines execution order (higher values execute first).
	Priority Priority

	// Once indicates the subscriber is removed after its first invocation.
	Once bool
}

// DefaultSubscriptionConfig returns a default subscription configuration.
func DefaultSubscriptionConfig() SubscriptionConfig {
	return SubscriptionConfig{
		Priority: PriorityNormal,
		Once:     false,
	}
}

// SubscribeOption is a function that configures a subscription.
type SubscribeOption func(*SubscriptionConfig)

// WithPriority sets the subscription priority.
func WithPriority(p Priority) SubscribeOption {
	return func(c *SubscriptionConfig) {
		c.Priority = p
	}
}

// WithOnce makes the subscription fire at most once.
func WithOnce() SubscribeOption {
	return func(c *SubscriptionConfig) {
		c.Once = true
	}
}

// subscriber is one named registration. It is owned by the registry list for
// its event name.
type subscriber struct {
	id      string
	seq     uint64
	name    string
	handler Handler
	config  SubscriptionConfig
	state   atomic.Int32
}

// newSubscriber creates a subscriber with the given options applied.
func newSubscriber(seq uint64, name string, h Handler, opts ...SubscribeOption) *subscriber {
	config := DefaultSubscriptionConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &subscriber{
		id:      generateID(),
		seq:     seq,
		name:    name,
		handler: h,
		config:  config,
	}
}

// State returns the current subscriber state.
func (s *subscriber) State() subscriptionState {
	return subscriptionState(s.state.Load())
}

// claim reports whether this dispatch may invoke the subscriber.
// Repeating subscribers are always claimable; a once-subscriber is claimed by
// exactly one caller across all concurrent dispatches.
func (s *subscriber) claim() bool {
	if !s.config.Once {
		return true
	}
	return s.state.CompareAndSwap(int32(subscriptionActive), int32(subscriptionFired))
}

// wildcard is one registration observing every published name.
type wildcard struct {
	id      string
	seq     uint64
	handler WildcardHandler
}
