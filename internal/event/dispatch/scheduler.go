package dispatch

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

const defaultExpiryDuration = 10 * time.Second

// defaultPoolSize is the default number of pooled workers (based on CPU count).
var defaultPoolSize = runtime.NumCPU()

// Logger is the subset of a logger the scheduler needs.
// *logrus.Logger and *logrus.Entry both satisfy it.
type Logger interface {
	Printf(format string, args ...any)
}

// Scheduler runs deferred work on an ants worker pool and tracks how much of
// it is still in flight.
//
// The pool is non-blocking: when every worker is busy the task is handed to a
// fresh goroutine instead. A subscriber that publishes asynchronously from
// inside a pooled dispatch can therefore never wait on its own pool.
type Scheduler struct {
	pool *ants.Pool

	mu       sync.Mutex
	inflight int
	idle     chan struct{}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*schedulerConfig)

type schedulerConfig struct {
	size         int
	expiry       time.Duration
	logger       Logger
	panicHandler func(any)
}

// WithPoolSize sets the number of pooled workers.
func WithPoolSize(n int) SchedulerOption {
	return func(c *schedulerConfig) {
		if n > 0 {
			c.size = n
		}
	}
}

// WithExpiryDuration sets how long idle workers are kept before being purged.
func WithExpiryDuration(d time.Duration) SchedulerOption {
	return func(c *schedulerConfig) {
		if d > 0 {
			c.expiry = d
		}
	}
}

// WithLogger routes pool diagnostics to the given logger.
func WithLogger(l Logger) SchedulerOption {
	return func(c *schedulerConfig) {
		c.logger = l
	}
}

// WithPoolPanicHandler sets the handler for panics that escape a task.
// Dispatch sequences recover their own subscriber panics, so this only fires
// on defects in the dispatch driver itself.
func WithPoolPanicHandler(h func(any)) SchedulerOption {
	return func(c *schedulerConfig) {
		c.panicHandler = h
	}
}

// NewScheduler creates a scheduler backed by a new ants pool.
func NewScheduler(opts ...SchedulerOption) (*Scheduler, error) {
	cfg := schedulerConfig{
		size:   defaultPoolSize,
		expiry: defaultExpiryDuration,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	poolOpts := []ants.Option{
		ants.WithNonblocking(true),
		ants.WithExpiryDuration(cfg.expiry),
	}
	if cfg.logger != nil {
		poolOpts = append(poolOpts, ants.WithLogger(cfg.logger))
	}
	if cfg.panicHandler != nil {
		poolOpts = append(poolOpts, ants.WithPanicHandler(cfg.panicHandler))
	}

	pool, err := ants.NewPool(cfg.size, poolOpts...)
	if err != nil {
		return nil, err
	}

	return &Scheduler{pool: pool}, nil
}

// Submit queues task for execution on the pool.
// It returns ErrSchedulerClosed after Release.
func (s *Scheduler) Submit(task func()) error {
	s.begin()

	run := func() {
		defer s.done()
		task()
	}

	err := s.pool.Submit(run)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ants.ErrPoolOverload):
		go run()
		return nil
	case errors.Is(err, ants.ErrPoolClosed):
		s.done()
		return ErrSchedulerClosed
	default:
		s.done()
		return err
	}
}

// Wait blocks until no submitted task is in flight or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	if s.inflight == 0 {
		s.mu.Unlock()
		return nil
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InFlight returns the number of submitted tasks that have not finished.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight
}

// Release closes the pool, waiting up to timeout for running workers to exit.
func (s *Scheduler) Release(timeout time.Duration) error {
	if timeout <= 0 {
		s.pool.Release()
		return nil
	}
	return s.pool.ReleaseTimeout(timeout)
}

func (s *Scheduler) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++
}

func (s *Scheduler) done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.inflight == 0 {
		close(s.idle)
	}
}
