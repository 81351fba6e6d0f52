package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginPayload struct {
	UserID string
	Roles  []string
}

func TestBus_WaitFor(t *testing.T) {
	b := newTestBus(t)
	payload := loginPayload{UserID: "u-1", Roles: []string{"admin"}}

	go func() {
		// Publish once the waiter's subscription is live.
		for !b.HasSubscribers("x") {
			time.Sleep(time.Millisecond)
		}
		_, _ = b.Publish(context.Background(), "x", payload)
	}()

	evt, err := b.WaitFor(context.Background(), "x", 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "x", evt.Name)
	assert.Equal(t, payload, evt.Payload)
	assert.Equal(t, 0, b.SubscriberCountFor("x"))
}

func TestBus_WaitFor_Timeout(t *testing.T) {
	b := newTestBus(t)
	_, _ = b.SubscribeFunc("x", nopHandler)
	before := b.SubscriberCountFor("x")

	start := time.Now()
	_, err := b.WaitFor(context.Background(), "x", 50*time.Millisecond)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWaitTimeout))

	var terr *WaitTimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "x", terr.EventName)
	assert.Equal(t, 50*time.Millisecond, terr.Timeout)
	assert.Contains(t, err.Error(), `"x"`)

	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, before, b.SubscriberCountFor("x"))
}

func TestBus_WaitFor_ContextCancel(t *testing.T) {
	b := newTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for !b.HasSubscribers("x") {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	_, err := b.WaitFor(ctx, "x", 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, b.SubscriberCountFor("x"))
}

func TestBus_WaitFor_ClosedBus(t *testing.T) {
	b := NewBus()
	require.NoError(t, b.Close(context.Background()))

	_, err := b.WaitFor(context.Background(), "x", time.Second)
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestBus_WaitFor_OnlyFirstEvent(t *testing.T) {
	b := newTestBus(t, WithAsync(true))

	go func() {
		for !b.HasSubscribers("seq") {
			time.Sleep(time.Millisecond)
		}
		_, _ = b.Publish(context.Background(), "seq", 1, Async(false))
		_, _ = b.Publish(context.Background(), "seq", 2, Async(false))
	}()

	evt, err := b.WaitFor(context.Background(), "seq", 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, evt.Payload)
}
