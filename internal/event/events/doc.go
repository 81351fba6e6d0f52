// Package events defines the catalog of gatekeep domain events.
//
// Each event has a topic constant and a payload struct whose EventName method
// returns that topic. Events are grouped by domain:
//
//   - user: registration, login, logout, password changes, deletion
//   - session: token issuance and revocation
//   - profile: profile and avatar updates
//   - contact: adding, removing, blocking and unblocking contacts
//   - security and system: rate limiting, configuration reloads
//
// Names outside the catalog are published with Raw, which carries the name
// and an untyped map payload. The bus itself never inspects payloads.
//
// # Usage
//
//	_, err := events.Publish(ctx, bus, events.ContactAdded{
//	    OwnerID:   owner,
//	    ContactID: other,
//	})
//
//	unsub, err := events.Subscribe(bus, func(ctx context.Context, evt event.Event, p events.UserLogin) error {
//	    return audit.Record(p.UserID, evt.Timestamp)
//	})
package events
