package event

import (
	"runtime"

	log "github.com/sirupsen/logrus"
)

// BusOption configures an event Bus.
type BusOption func(*busConfig)

// busConfig contains configuration for the event bus.
type busConfig struct {
	// async is the default dispatch timing for Publish.
	async bool

	// workers is the size of the pool running deferred dispatches.
	workers int

	// logger receives failure and lifecycle logs.
	logger *log.Entry

	// errorObserver is called for every swallowed subscriber failure.
	errorObserver ErrorObserver
}

// defaultBusConfig returns sensible default configuration.
func defaultBusConfig() busConfig {
	return busConfig{
		async:   false,
		workers: runtime.NumCPU(),
		logger:  log.WithField("component", "event-bus"),
	}
}

// WithAsync sets whether Publish defers dispatch unless told otherwise.
func WithAsync(async bool) BusOption {
	return func(c *busConfig) {
		c.async = async
	}
}

// WithWorkers sets the number of pooled workers for deferred dispatch.
func WithWorkers(n int) BusOption {
	return func(c *busConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the logger used by the bus.
func WithLogger(l *log.Entry) BusOption {
	return func(c *busConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithErrorObserver sets a callback for swallowed subscriber failures.
// Without one, failures are logged at debug level.
func WithErrorObserver(fn ErrorObserver) BusOption {
	return func(c *busConfig) {
		c.errorObserver = fn
	}
}

// PublishOption configures a single Publish call.
type PublishOption func(*publishConfig)

type publishConfig struct {
	async    bool
	metadata Metadata
}

// Async overrides the bus default dispatch timing for one publish.
// When true, Publish returns the event ID immediately and dispatch happens on
// a pooled goroutine; when false, Publish returns after every subscriber has
// been attempted.
func Async(async bool) PublishOption {
	return func(c *publishConfig) {
		c.async = async
	}
}

// WithMetadata attaches metadata to the published event.
// Fields set by later options take precedence.
func WithMetadata(meta Metadata) PublishOption {
	return func(c *publishConfig) {
		c.metadata = meta
	}
}

// WithCorrelationID sets the correlation ID of the published event.
func WithCorrelationID(id string) PublishOption {
	return func(c *publishConfig) {
		c.metadata.CorrelationID = id
	}
}

// WithCausationID sets the causation ID of the published event.
func WithCausationID(id string) PublishOption {
	return func(c *publishConfig) {
		c.metadata.CausationID = id
	}
}
