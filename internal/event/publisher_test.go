package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_Metadata(t *testing.T) {
	b := newTestBus(t)

	var got Event
	_, _ = b.SubscribeFunc("user:login", func(_ context.Context, evt Event) error {
		got = evt
		return nil
	})

	base := NewPublisher(b)
	p := base.WithSource("192.0.2.1:5000", "curl/8").WithCorrelation("req-1").WithExtra("route", "/v1/login")

	_, err := p.PublishSync(context.Background(), "user:login", nil)
	require.NoError(t, err)

	assert.Equal(t, "192.0.2.1:5000", got.Metadata.SourceAddr)
	assert.Equal(t, "curl/8", got.Metadata.Device)
	assert.Equal(t, "req-1", got.Metadata.CorrelationID)
	route, _ := got.Metadata.Get("route")
	assert.Equal(t, "/v1/login", route)

	assert.Empty(t, base.Metadata().CorrelationID)
	assert.Nil(t, base.Metadata().Extra)
	assert.Same(t, b, p.Bus())
}

func TestPublisher_PublishCaused(t *testing.T) {
	b := newTestBus(t)
	p := NewPublisher(b)

	var events []Event
	_, _ = b.OnAny(WildcardFunc(func(_ context.Context, _ string, evt Event) error {
		events = append(events, evt)
		return nil
	}))

	parentID, err := p.PublishSync(context.Background(), "user:registered", nil)
	require.NoError(t, err)
	require.Len(t, events, 1)

	_, err = p.PublishCaused(context.Background(), events[0], "session:created", nil, Async(false))
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, parentID, events[1].Metadata.CausationID)
	assert.Equal(t, parentID, events[1].Metadata.CorrelationID)
}

func TestPublisher_PublishAsync(t *testing.T) {
	b := newTestBus(t)
	p := NewPublisher(b)

	done := make(chan string, 1)
	_, _ = b.SubscribeFunc("a", func(_ context.Context, evt Event) error {
		done <- evt.ID
		return nil
	})

	id, err := p.PublishAsync(context.Background(), "a", nil)
	require.NoError(t, err)
	assert.Equal(t, id, <-done)
}

func TestPublisher_OptionsNotMutated(t *testing.T) {
	b := newTestBus(t)
	p := NewPublisher(b)

	opts := make([]PublishOption, 1, 4)
	opts[0] = WithCorrelationID("c-1")

	_, err := p.PublishSync(context.Background(), "a", nil, opts...)
	require.NoError(t, err)
	_, err = p.PublishAsync(context.Background(), "a", nil, opts...)
	require.NoError(t, err)
	require.NoError(t, b.Drain(context.Background()))

	spare := opts[:cap(opts)]
	for _, opt := range spare[1:] {
		assert.Nil(t, opt)
	}
}
