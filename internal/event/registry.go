package event

import (
	"cmp"
	"slices"
	"sync"
)

// registry holds the named subscriber lists and the wildcard set.
// It is thread-safe for concurrent access; readers always receive copies.
type registry struct {
	mu        sync.RWMutex
	subs      map[string][]*subscriber
	wildcards []*wildcard
	count     int
	seq       uint64
}

// newRegistry creates an empty registry.
func newRegistry() *registry {
	return &registry{
		subs: make(map[string][]*subscriber),
	}
}

// nextSeq returns the next registration sequence number.
func (r *registry) nextSeq() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.seq
}

// add appends a subscriber to the list for its event name.
func (r *registry) add(sub *subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subs[sub.name] = append(r.subs[sub.name], sub)
	r.count++
}

// remove deletes exactly sub from its list.
// It returns false if sub was already gone.
func (r *registry) remove(sub *subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.subs[sub.name]
	i := slices.Index(list, sub)
	if i < 0 {
		return false
	}

	// Build a new slice so snapshots taken earlier stay intact.
	list = slices.Delete(slices.Clone(list), i, i+1)
	if len(list) == 0 {
		delete(r.subs, sub.name)
	} else {
		r.subs[sub.name] = list
	}
	r.count--
	return true
}

// contains reports whether sub is still registered.
func (r *registry) contains(sub *subscriber) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.subs[sub.name], sub)
}

// addWildcard registers a wildcard subscriber.
func (r *registry) addWildcard(w *wildcard) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.wildcards = append(r.wildcards, w)
}

// removeWildcard deletes exactly w. It returns false if w was already gone.
func (r *registry) removeWildcard(w *wildcard) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.Index(r.wildcards, w)
	if i < 0 {
		return false
	}
	r.wildcards = slices.Delete(slices.Clone(r.wildcards), i, i+1)
	return true
}

// snapshot returns copies of the wildcard set and the named list for name.
// The named copy is sorted by descending priority, ties in registration order.
func (r *registry) snapshot(name string) ([]*wildcard, []*subscriber) {
	r.mu.RLock()
	wildcards := slices.Clone(r.wildcards)
	named := slices.Clone(r.subs[name])
	r.mu.RUnlock()

	slices.SortStableFunc(named, func(a, b *subscriber) int {
		if c := cmp.Compare(b.config.Priority, a.config.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	return wildcards, named
}

// removeNames drops the lists for the given names.
// With no names it clears every list and the wildcard set.
func (r *registry) removeNames(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(names) == 0 {
		r.subs = make(map[string][]*subscriber)
		r.wildcards = nil
		r.count = 0
		return
	}

	for _, name := range names {
		r.count -= len(r.subs[name])
		delete(r.subs, name)
	}
}

// total returns the number of named subscribers across all lists.
func (r *registry) total() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// countFor returns the number of subscribers registered for name.
func (r *registry) countFor(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[name])
}

// wildcardCount returns the number of wildcard subscribers.
func (r *registry) wildcardCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.wildcards)
}
