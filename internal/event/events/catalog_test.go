package events

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gatekeep/internal/event"
	"github.com/dshills/gatekeep/internal/event/topic"
)

func TestCatalog_NamesAreValid(t *testing.T) {
	names := Names()
	require.Len(t, names, len(known))

	for _, name := range names {
		assert.True(t, Known(name), name)
		assert.Equal(t, name, known[topic.Topic(name)].EventName().String())
		assert.Contains(t, name, ":")
	}

	assert.False(t, Known("user:unknown"))
	assert.False(t, Known(""))
}

func TestCatalog_DomainsMatchPrefixes(t *testing.T) {
	domains := map[string]bool{
		"user": true, "session": true, "profile": true,
		"contact": true, "security": true, "system": true,
	}
	for _, name := range Names() {
		domain, _, _ := strings.Cut(name, ":")
		assert.True(t, domains[domain], "unexpected domain in %s", name)
	}
}

func TestPublish_Typed(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close(context.Background())

	var got ContactBlocked
	unsub, err := Subscribe(bus, func(_ context.Context, evt event.Event, p ContactBlocked) error {
		assert.Equal(t, TopicContactBlocked.String(), evt.Name)
		got = p
		return nil
	})
	require.NoError(t, err)
	defer unsub()

	_, err = Publish(context.Background(), bus, ContactBlocked{OwnerID: "a", ContactID: "b"})
	require.NoError(t, err)
	assert.Equal(t, ContactBlocked{OwnerID: "a", ContactID: "b"}, got)

	_, err = Publish(context.Background(), bus, &ContactBlocked{OwnerID: "c", ContactID: "d"})
	require.NoError(t, err)
	assert.Equal(t, "c", got.OwnerID)
}

func TestSubscribe_SkipsMismatchedPayload(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close(context.Background())

	var calls int
	_, err := Subscribe(bus, func(context.Context, event.Event, UserLogin) error {
		calls++
		return nil
	})
	require.NoError(t, err)

	_, err = bus.Publish(context.Background(), TopicUserLogin.String(), "not a UserLogin")
	require.NoError(t, err)
	_, err = bus.Publish(context.Background(), TopicUserLogin.String(), (*UserLogin)(nil))
	require.NoError(t, err)

	assert.Zero(t, calls)
	assert.Equal(t, uint64(2), bus.Stats().TotalProcessed)
}

func TestSubscribe_Raw(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close(context.Background())

	_, err := Subscribe(bus, func(context.Context, event.Event, Raw) error { return nil })
	assert.True(t, errors.Is(err, event.ErrInvalidEventName))

	var data map[string]any
	_, err = bus.SubscribeFunc("billing:invoice_paid", func(_ context.Context, evt event.Event) error {
		data, _ = evt.Payload.(map[string]any)
		return nil
	})
	require.NoError(t, err)

	_, err = Publish(context.Background(), bus, Raw{Name: "billing:invoice_paid", Data: map[string]any{"amount": 12}})
	require.NoError(t, err)
	assert.Equal(t, 12, data["amount"])

	_, err = Publish(context.Background(), bus, Raw{})
	assert.ErrorIs(t, err, event.ErrInvalidEventName)
}

func TestPublish_RawAcceptsAnyBusName(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close(context.Background())

	for _, name := range []string{"legacy:billing:paid", "bad name", "plain"} {
		var got int
		_, err := bus.SubscribeFunc(name, func(context.Context, event.Event) error {
			got++
			return nil
		})
		require.NoError(t, err)

		_, err = Publish(context.Background(), bus, Raw{Name: name, Data: map[string]any{"n": 1}})
		require.NoError(t, err, name)
		assert.Equal(t, 1, got, name)
	}
}

func TestDecode(t *testing.T) {
	evt := event.Event{Payload: UserLogout{UserID: "u"}}

	p, ok := Decode[UserLogout](evt)
	assert.True(t, ok)
	assert.Equal(t, "u", p.UserID)

	_, ok = Decode[UserLogin](evt)
	assert.False(t, ok)
}

func TestEmitterFrom(t *testing.T) {
	b := event.NewBus()
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	p := event.NewPublisher(b).WithCorrelation("req-7")

	assert.Same(t, b, EmitterFrom(context.Background(), b))

	ctx := WithEmitter(context.Background(), p)
	assert.Same(t, p, EmitterFrom(ctx, b))

	var got event.Event
	_, err := b.SubscribeFunc(TopicContactAdded.String(), func(_ context.Context, evt event.Event) error {
		got = evt
		return nil
	})
	require.NoError(t, err)

	_, err = Publish(ctx, EmitterFrom(ctx, b), ContactAdded{OwnerID: "a", ContactID: "b"}, event.Async(false))
	require.NoError(t, err)
	assert.Equal(t, "req-7", got.Metadata.CorrelationID)
}
