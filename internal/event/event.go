package event

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Event is an immutable record of something that happened.
// A fresh Event is built for every publish; it is never persisted.
type Event struct {
	// ID is a unique identifier for this event instance.
	ID string

	// Name is the event name (e.g., "user:registered").
	Name string

	// Payload contains the event-specific data. Its shape is determined by Name.
	Payload any

	// Timestamp is when the event was created.
	Timestamp time.Time

	// Metadata carries optional tracing and origin information.
	Metadata Metadata
}

// Metadata contains optional information attached to an event.
type Metadata struct {
	// CorrelationID links related events (e.g., everything caused by one request).
	CorrelationID string

	// CausationID links to the event that caused this one.
	CausationID string

	// SourceAddr is the network address the triggering request came from.
	SourceAddr string

	// Device describes the client device (user agent or similar).
	Device string

	// Extra holds open-ended additional keys.
	Extra map[string]any
}

// Get returns an extra metadata value.
func (m Metadata) Get(key string) (any, bool) {
	v, ok := m.Extra[key]
	return v, ok
}

// clone returns a copy whose Extra map is not shared with m.
func (m Metadata) clone() Metadata {
	if m.Extra != nil {
		m.Extra = maps.Clone(m.Extra)
	}
	return m
}

// timeNow is a variable to allow testing with fixed timestamps.
var timeNow = time.Now

// newEvent builds a fresh event with a new ID and the current time.
func newEvent(name string, payload any, meta Metadata) Event {
	return Event{
		ID:        generateID(),
		Name:      name,
		Payload:   payload,
		Timestamp: timeNow(),
		Metadata:  meta.clone(),
	}
}

// generateID generates a unique event or subscription ID.
func generateID() string {
	return uuid.NewString()
}
