package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Lazy(t *testing.T) {
	t.Cleanup(ResetDefault)
	ResetDefault()

	b1 := Default()
	b2 := Default()
	assert.Same(t, b1, b2)
}

func TestResetDefault(t *testing.T) {
	t.Cleanup(ResetDefault)
	ResetDefault()

	old := Default()
	_, err := old.SubscribeFunc("a", nopHandler)
	require.NoError(t, err)
	_, err = old.OnAny(WildcardFunc(func(context.Context, string, Event) error { return nil }))
	require.NoError(t, err)
	require.Equal(t, 1, old.SubscriberCount())

	ResetDefault()

	fresh := Default()
	assert.NotSame(t, old, fresh)
	assert.Equal(t, 0, fresh.SubscriberCount())
	assert.Equal(t, 0, fresh.Stats().WildcardCount)

	assert.Equal(t, 0, old.SubscriberCount())
	assert.True(t, old.IsClosed())
}

func TestSetDefaultOptions(t *testing.T) {
	t.Cleanup(func() {
		SetDefaultOptions()
		ResetDefault()
	})

	SetDefaultOptions(WithAsync(true))
	ResetDefault()

	release := make(chan struct{})
	done := make(chan struct{})
	_, err := Default().SubscribeFunc("a", func(context.Context, Event) error {
		<-release
		close(done)
		return nil
	})
	require.NoError(t, err)

	// Returns before the blocked subscriber completes.
	_, err = Default().Publish(context.Background(), "a", nil)
	require.NoError(t, err)
	close(release)
	<-done
}

func TestResetDefault_FromAsyncSubscriber(t *testing.T) {
	t.Cleanup(func() {
		SetDefaultOptions()
		ResetDefault()
	})

	SetDefaultOptions(WithAsync(true))
	ResetDefault()

	old := Default()
	done := make(chan struct{})
	_, err := old.SubscribeFunc("reset", func(context.Context, Event) error {
		ResetDefault()
		close(done)
		return nil
	})
	require.NoError(t, err)

	_, err = old.Publish(context.Background(), "reset", nil)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ResetDefault blocked inside a subscriber of the old bus")
	}
	assert.True(t, old.IsClosed())
	assert.NotSame(t, old, Default())
	require.NoError(t, old.Drain(context.Background()))
}
