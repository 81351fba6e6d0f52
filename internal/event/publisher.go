package event

import (
	"context"
	"maps"
)

// Publisher publishes onto a Bus with default metadata attached to every
// event. Request handlers typically derive one per request so that every
// event caused by the request shares its origin and correlation ID.
type Publisher struct {
	bus  *Bus
	meta Metadata
}

// NewPublisher creates a Publisher wrapping the given bus.
func NewPublisher(bus *Bus) *Publisher {
	return &Publisher{bus: bus}
}

// WithSource returns a copy that stamps events with the request origin.
func (p *Publisher) WithSource(addr, device string) *Publisher {
	c := p.clone()
	c.meta.SourceAddr = addr
	c.meta.Device = device
	return c
}

// WithCorrelation returns a copy that stamps events with a correlation ID.
func (p *Publisher) WithCorrelation(id string) *Publisher {
	c := p.clone()
	c.meta.CorrelationID = id
	return c
}

// WithExtra returns a copy that adds an extra metadata key to every event.
func (p *Publisher) WithExtra(key string, value any) *Publisher {
	c := p.clone()
	if c.meta.Extra == nil {
		c.meta.Extra = make(map[string]any)
	}
	c.meta.Extra[key] = value
	return c
}

// Publish publishes with the bus default timing.
// Options passed here are applied after the publisher's metadata.
func (p *Publisher) Publish(ctx context.Context, name string, payload any, opts ...PublishOption) (string, error) {
	all := make([]PublishOption, 0, len(opts)+1)
	all = append(all, WithMetadata(p.meta))
	all = append(all, opts...)
	return p.bus.Publish(ctx, name, payload, all...)
}

// PublishSync publishes and returns after every subscriber has been attempted.
func (p *Publisher) PublishSync(ctx context.Context, name string, payload any, opts ...PublishOption) (string, error) {
	return p.Publish(ctx, name, payload, append(opts[:len(opts):len(opts)], Async(false))...)
}

// PublishAsync publishes and returns as soon as the dispatch is queued.
func (p *Publisher) PublishAsync(ctx context.Context, name string, payload any, opts ...PublishOption) (string, error) {
	return p.Publish(ctx, name, payload, append(opts[:len(opts):len(opts)], Async(true))...)
}

// PublishCaused publishes an event caused by parent, inheriting its correlation ID.
func (p *Publisher) PublishCaused(ctx context.Context, parent Event, name string, payload any, opts ...PublishOption) (string, error) {
	correlation := parent.Metadata.CorrelationID
	if correlation == "" {
		correlation = parent.ID
	}
	opts = append([]PublishOption{WithCorrelationID(correlation), WithCausationID(parent.ID)}, opts...)
	return p.Publish(ctx, name, payload, opts...)
}

// Metadata returns a copy of the metadata stamped on every event.
func (p *Publisher) Metadata() Metadata {
	return p.meta.clone()
}

// Bus returns the underlying bus.
func (p *Publisher) Bus() *Bus {
	return p.bus
}

func (p *Publisher) clone() *Publisher {
	c := *p
	c.meta.Extra = maps.Clone(p.meta.Extra)
	return &c
}
