package event

import (
	"maps"
	"sync"
	"sync/atomic"
)

// Stats is a point-in-time copy of bus statistics.
// Mutating a Stats value never affects the bus.
type Stats struct {
	// TotalPublished is the number of Publish calls that built an event.
	TotalPublished uint64

	// TotalProcessed is the number of named subscriber invocations that succeeded.
	TotalProcessed uint64

	// TotalErrors is the number of subscriber invocations (named or wildcard)
	// that returned an error or panicked.
	TotalErrors uint64

	// SubscriberCount is the number of live named subscribers.
	SubscriberCount int

	// WildcardCount is the number of live wildcard subscribers.
	WildcardCount int

	// PublishedByName is the number of publishes per event name.
	PublishedByName map[string]uint64
}

// counters holds the live accumulated statistics of a bus.
type counters struct {
	published atomic.Uint64
	processed atomic.Uint64
	errors    atomic.Uint64

	mu     sync.Mutex
	byName map[string]uint64
}

func newCounters() *counters {
	return &counters{byName: make(map[string]uint64)}
}

// recordPublish counts one publish of name.
func (c *counters) recordPublish(name string) {
	c.published.Add(1)

	c.mu.Lock()
	c.byName[name]++
	c.mu.Unlock()
}

// snapshot copies the accumulated counters into s.
func (c *counters) snapshot(s *Stats) {
	s.TotalPublished = c.published.Load()
	s.TotalProcessed = c.processed.Load()
	s.TotalErrors = c.errors.Load()

	c.mu.Lock()
	s.PublishedByName = maps.Clone(c.byName)
	c.mu.Unlock()
}

// reset zeroes every accumulated counter.
func (c *counters) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.published.Store(0)
	c.processed.Store(0)
	c.errors.Store(0)
	c.byName = make(map[string]uint64)
}
