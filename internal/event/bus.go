package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/dshills/gatekeep/internal/event/dispatch"
)

// Bus is an in-process publish/subscribe dispatcher.
//
// A Bus owns its subscriber registry, its wildcard set and its statistics.
// Every dispatch iterates over a snapshot taken when the dispatch starts and
// holds no lock while subscribers run, so subscribers may publish, subscribe
// and unsubscribe re-entrantly.
type Bus struct {
	registry  *registry
	counters  *counters
	executor  *dispatch.Executor
	scheduler *dispatch.Scheduler

	config busConfig
	logger *log.Entry

	closed atomic.Bool
}

// NewBus creates a new event bus with the given options.
func NewBus(opts ...BusOption) *Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}

	logger := config.logger

	scheduler, err := dispatch.NewScheduler(
		dispatch.WithPoolSize(config.workers),
		dispatch.WithLogger(logger),
		dispatch.WithPoolPanicHandler(func(v any) {
			logger.WithField("panic", v).Error("dispatch driver panicked")
		}),
	)
	if err != nil {
		// Only reachable with an invalid pool size, which WithWorkers rejects.
		panic(fmt.Sprintf("event: creating scheduler: %v", err))
	}

	return &Bus{
		registry: newRegistry(),
		counters: newCounters(),
		executor: dispatch.NewExecutor(
			dispatch.WithPanicHandler(func(v any, stack []byte) {
				logger.WithField("panic", v).Debugf("subscriber panicked\n%s", stack)
			}),
		),
		scheduler: scheduler,
		config:    config,
		logger:    logger,
	}
}

// Subscribe registers h for events named name.
// The returned Unsubscribe removes exactly this registration.
func (b *Bus) Subscribe(name string, h Handler, opts ...SubscribeOption) (Unsubscribe, error) {
	sub, err := b.subscribe(name, h, opts...)
	if err != nil {
		return nil, err
	}
	return b.unsubscriber(sub), nil
}

func (b *Bus) subscribe(name string, h Handler, opts ...SubscribeOption) (*subscriber, error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	if name == "" {
		return nil, ErrInvalidEventName
	}
	if b.closed.Load() {
		return nil, ErrBusClosed
	}

	sub := newSubscriber(b.registry.nextSeq(), name, h, opts...)
	b.registry.add(sub)
	return sub, nil
}

func (b *Bus) unsubscriber(sub *subscriber) Unsubscribe {
	var once sync.Once
	return func() {
		once.Do(func() {
			b.registry.remove(sub)
		})
	}
}

// SubscribeFunc registers a function handler for events named name.
func (b *Bus) SubscribeFunc(name string, fn HandlerFunc, opts ...SubscribeOption) (Unsubscribe, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.Subscribe(name, fn, opts...)
}

// Once registers h to run for the next event named name only.
// The once behaviour applies regardless of the options passed.
func (b *Bus) Once(name string, h Handler, opts ...SubscribeOption) (Unsubscribe, error) {
	opts = append(opts[:len(opts):len(opts)], WithOnce())
	return b.Subscribe(name, h, opts...)
}

// OnAny registers h to observe every published event, whatever its name.
// Wildcard subscribers run before named subscribers, in registration order.
func (b *Bus) OnAny(h WildcardHandler) (Unsubscribe, error) {
	if h == nil {
		return nil, ErrNilHandler
	}
	if b.closed.Load() {
		return nil, ErrBusClosed
	}

	w := &wildcard{
		id:      generateID(),
		seq:     b.registry.nextSeq(),
		handler: h,
	}
	b.registry.addWildcard(w)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.registry.removeWildcard(w)
		})
	}, nil
}

// Publish builds a new event and dispatches it to the current subscribers.
//
// The event is counted before any dispatch is attempted. In synchronous mode
// Publish returns after every subscriber has been attempted; in asynchronous
// mode it returns as soon as the dispatch is queued. Subscriber failures are
// counted and never returned. The returned string is the event ID.
func (b *Bus) Publish(ctx context.Context, name string, payload any, opts ...PublishOption) (string, error) {
	if name == "" {
		return "", ErrInvalidEventName
	}
	if b.closed.Load() {
		return "", ErrBusClosed
	}

	cfg := publishConfig{async: b.config.async}
	for _, opt := range opts {
		opt(&cfg)
	}

	evt := newEvent(name, payload, cfg.metadata)
	b.counters.recordPublish(name)

	if !cfg.async {
		b.execute(ctx, evt)
		return evt.ID, nil
	}

	// The publisher's cancellation must not abort a dispatch it chose not to wait for.
	detached := context.WithoutCancel(ctx)
	if err := b.scheduler.Submit(func() { b.execute(detached, evt) }); err != nil {
		if errors.Is(err, dispatch.ErrSchedulerClosed) {
			return evt.ID, ErrBusClosed
		}
		return evt.ID, fmt.Errorf("queue dispatch of %s: %w", name, err)
	}
	return evt.ID, nil
}

// execute runs one dispatch sequence: wildcards first, then named subscribers
// by descending priority. Every invocation is isolated.
func (b *Bus) execute(ctx context.Context, evt Event) {
	wildcards, named := b.registry.snapshot(evt.Name)

	for _, w := range wildcards {
		result := b.executor.Execute(func() error {
			return w.handler.HandleAny(ctx, evt.Name, evt)
		})
		if result.Err != nil {
			b.fail(evt, w.id, true, result.Err)
		}
	}

	for _, sub := range named {
		if !sub.claim() {
			continue
		}

		result := b.executor.Execute(func() error {
			return sub.handler.Handle(ctx, evt)
		})

		if sub.config.Once {
			b.registry.remove(sub)
		}

		if result.Err != nil {
			b.fail(evt, sub.id, false, result.Err)
			continue
		}
		b.counters.processed.Add(1)
	}
}

// fail counts a swallowed subscriber failure and reports it.
func (b *Bus) fail(evt Event, subID string, wildcard bool, err error) {
	b.counters.errors.Add(1)

	herr := &HandlerError{
		SubscriptionID: subID,
		EventName:      evt.Name,
		Wildcard:       wildcard,
		Err:            err,
	}

	if b.config.errorObserver == nil {
		b.logger.WithFields(log.Fields{
			"event":        evt.Name,
			"eventID":      evt.ID,
			"subscription": subID,
			"wildcard":     wildcard,
		}).WithError(err).Debug("subscriber failed")
		return
	}

	// A faulty observer must not break the dispatch that called it.
	b.executor.Execute(func() error {
		b.config.errorObserver(evt, herr)
		return nil
	})
}

// RemoveAll drops subscribers. With names, only the lists for those names
// are removed. Without names, every list and every wildcard subscriber is
// removed. Statistics counters are not affected.
func (b *Bus) RemoveAll(names ...string) {
	b.registry.removeNames(names...)
}

// HasSubscribers reports whether any named subscriber is registered for name.
func (b *Bus) HasSubscribers(name string) bool {
	return b.registry.countFor(name) > 0
}

// SubscriberCount returns the number of live named subscribers.
func (b *Bus) SubscriberCount() int {
	return b.registry.total()
}

// SubscriberCountFor returns the number of live subscribers for name.
func (b *Bus) SubscriberCountFor(name string) int {
	return b.registry.countFor(name)
}

// Stats returns a copy of the current statistics.
func (b *Bus) Stats() Stats {
	var s Stats
	b.counters.snapshot(&s)
	s.SubscriberCount = b.registry.total()
	s.WildcardCount = b.registry.wildcardCount()
	return s
}

// ResetStats zeroes the accumulated counters. SubscriberCount reflects live
// registrations and is left alone.
func (b *Bus) ResetStats() {
	b.counters.reset()
}

// Drain blocks until every queued asynchronous dispatch has finished or ctx is done.
func (b *Bus) Drain(ctx context.Context) error {
	return b.scheduler.Wait(ctx)
}

// Close removes every subscriber, waits for queued dispatches and releases
// the worker pool. Later Subscribe and Publish calls return ErrBusClosed.
// Calling Close again is a no-op.
func (b *Bus) Close(ctx context.Context) error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	return b.shutdown(ctx)
}

// shutdown clears the registry, drains queued dispatches and releases the pool.
func (b *Bus) shutdown(ctx context.Context) error {
	b.RemoveAll()
	err := b.Drain(ctx)
	if rerr := b.scheduler.Release(0); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

// IsClosed reports whether Close has been called.
func (b *Bus) IsClosed() bool {
	return b.closed.Load()
}
