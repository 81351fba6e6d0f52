// Package topic provides the event name type used by the bus.
//
// # Topic Format
//
// Event names are namespaced with a single colon:
//
//	user:registered
//	contact:blocked
//	security:rate_limited
//
// The part before the colon is the domain, the part after it the action.
// Names without a colon are valid too; the catalog uses them for nothing, but
// ad hoc events published by callers may.
//
// # Usage
//
//	t := topic.Join("user", "login")
//	t.Domain() // "user"
//	t.Action() // "login"
package topic
