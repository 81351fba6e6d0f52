package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler implements every lifecycle hook and records the calls.
type recordingHandler struct {
	mu      sync.Mutex
	name    string
	allow   bool
	failure error
	panics  bool
	calls   []string
	errs    []error
}

func (h *recordingHandler) EventName() string { return h.name }

func (h *recordingHandler) BeforeHandle(context.Context, Event) bool {
	h.record("before")
	return h.allow
}

func (h *recordingHandler) Handle(context.Context, Event) error {
	h.record("handle")
	if h.panics {
		panic("handler bug")
	}
	return h.failure
}

func (h *recordingHandler) AfterHandle(context.Context, Event) {
	h.record("after")
}

func (h *recordingHandler) OnError(_ context.Context, _ Event, err error) {
	h.mu.Lock()
	h.errs = append(h.errs, err)
	h.mu.Unlock()
	h.record("error")
}

func (h *recordingHandler) record(step string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, step)
}

func TestRegistration_Hooks(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name       string
		handler    *recordingHandler
		wantCalls  []string
		wantErrors uint64
		wantDone   uint64
	}{
		{
			name:      "success runs before handle after",
			handler:   &recordingHandler{allow: true},
			wantCalls: []string{"before", "handle", "after"},
			wantDone:  1,
		},
		{
			name:      "before false short-circuits without error",
			handler:   &recordingHandler{allow: false},
			wantCalls: []string{"before"},
			wantDone:  1,
		},
		{
			name:       "failure skips after and reaches OnError",
			handler:    &recordingHandler{allow: true, failure: errBoom},
			wantCalls:  []string{"before", "handle", "error"},
			wantErrors: 1,
		},
		{
			name:       "panic is observed and counted",
			handler:    &recordingHandler{allow: true, panics: true},
			wantCalls:  []string{"before", "handle", "error"},
			wantErrors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBus(t)
			tt.handler.name = "profile:updated"

			reg := NewRegistration(b, tt.handler)
			require.NoError(t, reg.Register())

			_, err := b.Publish(context.Background(), "profile:updated", nil)
			require.NoError(t, err)

			assert.Equal(t, tt.wantCalls, tt.handler.calls)
			stats := b.Stats()
			assert.Equal(t, tt.wantErrors, stats.TotalErrors)
			assert.Equal(t, tt.wantDone, stats.TotalProcessed)
		})
	}
}

func TestRegistration_OnErrorReceivesFailure(t *testing.T) {
	b := newTestBus(t)
	errBoom := errors.New("boom")
	h := &recordingHandler{name: "e", allow: true, failure: errBoom}

	require.NoError(t, NewRegistration(b, h).Register())
	_, _ = b.Publish(context.Background(), "e", nil)

	require.Len(t, h.errs, 1)
	assert.ErrorIs(t, h.errs[0], errBoom)

	h2 := &recordingHandler{name: "p", allow: true, panics: true}
	require.NoError(t, NewRegistration(b, h2).Register())
	_, _ = b.Publish(context.Background(), "p", nil)

	require.Len(t, h2.errs, 1)
	assert.ErrorIs(t, h2.errs[0], ErrHandlerPanic)
}

func TestRegistration_Idempotent(t *testing.T) {
	b := newTestBus(t)
	reg := NewFuncRegistration(b, "contact:added", nopHandler)

	assert.False(t, reg.Registered())
	reg.Unregister()
	assert.Equal(t, 0, b.SubscriberCount())

	require.NoError(t, reg.Register())
	require.NoError(t, reg.Register())
	assert.True(t, reg.Registered())
	assert.Equal(t, 1, b.SubscriberCount())
	assert.Equal(t, "contact:added", reg.EventName())

	reg.Unregister()
	reg.Unregister()
	assert.False(t, reg.Registered())
	assert.Equal(t, 0, b.SubscriberCount())

	require.NoError(t, reg.Register())
	assert.Equal(t, 1, b.SubscriberCount())
}

func TestRegistration_FuncHandler(t *testing.T) {
	b := newTestBus(t)

	var got Event
	reg := NewFuncRegistration(b, "user:logout", func(_ context.Context, evt Event) error {
		got = evt
		return nil
	}, WithPriority(PriorityHigh))
	require.NoError(t, reg.Register())

	id, err := b.Publish(context.Background(), "user:logout", "u-1")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "u-1", got.Payload)
}

func TestRegistration_Once(t *testing.T) {
	b := newTestBus(t)

	var calls int
	reg := NewFuncRegistration(b, "o", func(context.Context, Event) error {
		calls++
		return nil
	}, WithOnce())
	require.NoError(t, reg.Register())

	_, _ = b.Publish(context.Background(), "o", nil)
	assert.False(t, reg.Registered())
	assert.Equal(t, 0, b.SubscriberCount())

	require.NoError(t, reg.Register())
	_, _ = b.Publish(context.Background(), "o", nil)
	assert.Equal(t, 2, calls)
}

func TestRegistration_ClosedBus(t *testing.T) {
	b := NewBus()
	require.NoError(t, b.Close(context.Background()))

	reg := NewFuncRegistration(b, "x", nopHandler)
	assert.ErrorIs(t, reg.Register(), ErrBusClosed)
	assert.False(t, reg.Registered())
}

func TestRegistration_AfterRemoveAll(t *testing.T) {
	tests := []struct {
		name   string
		remove func(b *Bus)
	}{
		{"named", func(b *Bus) { b.RemoveAll("a") }},
		{"all", func(b *Bus) { b.RemoveAll() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBus(t)

			var calls int
			reg := NewFuncRegistration(b, "a", func(context.Context, Event) error {
				calls++
				return nil
			})
			require.NoError(t, reg.Register())

			tt.remove(b)
			assert.False(t, reg.Registered())

			require.NoError(t, reg.Register())
			assert.True(t, reg.Registered())
			assert.Equal(t, 1, b.SubscriberCountFor("a"))

			_, err := b.Publish(context.Background(), "a", nil)
			require.NoError(t, err)
			assert.Equal(t, 1, calls)

			reg.Unregister()
			assert.Equal(t, 0, b.SubscriberCountFor("a"))
		})
	}
}

func TestRegistration_AfterClose(t *testing.T) {
	b := NewBus()
	reg := NewFuncRegistration(b, "a", nopHandler)
	require.NoError(t, reg.Register())

	require.NoError(t, b.Close(context.Background()))
	assert.False(t, reg.Registered())
	assert.ErrorIs(t, reg.Register(), ErrBusClosed)
	assert.False(t, reg.Registered())
}
