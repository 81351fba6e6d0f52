package events

import "context"

type emitterKey struct{}

// WithEmitter returns a context carrying e. Services publish through the
// context emitter when present so request metadata reaches every event.
func WithEmitter(ctx context.Context, e Emitter) context.Context {
	return context.WithValue(ctx, emitterKey{}, e)
}

// EmitterFrom returns the emitter stored in ctx, or fallback.
func EmitterFrom(ctx context.Context, fallback Emitter) Emitter {
	if e, ok := ctx.Value(emitterKey{}).(Emitter); ok && e != nil {
		return e
	}
	return fallback
}
