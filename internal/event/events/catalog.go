package events

import (
	"context"
	"fmt"
	"slices"

	"github.com/dshills/gatekeep/internal/event"
	"github.com/dshills/gatekeep/internal/event/topic"
)

// Payload is implemented by every catalogued event payload.
type Payload interface {
	// EventName returns the name the payload is published under.
	EventName() topic.Topic
}

// Raw carries an event that is not part of the catalog.
// Name is the event name and Data its untyped payload.
type Raw struct {
	Name string
	Data map[string]any
}

// EventName implements Payload.
func (r Raw) EventName() topic.Topic { return topic.Topic(r.Name) }

// Emitter publishes named events. *event.Bus and *event.Publisher implement it.
type Emitter interface {
	Publish(ctx context.Context, name string, payload any, opts ...event.PublishOption) (string, error)
}

// known maps every catalogued topic to a zero payload of its type.
var known = map[topic.Topic]Payload{
	TopicUserRegistered:             UserRegistered{},
	TopicUserLogin:                  UserLogin{},
	TopicUserLoginFailed:            UserLoginFailed{},
	TopicUserLogout:                 UserLogout{},
	TopicUserPasswordChanged:        UserPasswordChanged{},
	TopicUserPasswordResetRequested: UserPasswordResetRequested{},
	TopicUserPasswordReset:          UserPasswordReset{},
	TopicUserDeleted:                UserDeleted{},
	TopicSessionCreated:             SessionCreated{},
	TopicSessionRevoked:             SessionRevoked{},
	TopicProfileUpdated:             ProfileUpdated{},
	TopicProfileAvatarUpdated:       ProfileAvatarUpdated{},
	TopicContactAdded:               ContactAdded{},
	TopicContactRemoved:             ContactRemoved{},
	TopicContactBlocked:             ContactBlocked{},
	TopicContactUnblocked:           ContactUnblocked{},
	TopicSecurityRateLimited:        SecurityRateLimited{},
	TopicSystemConfigReloaded:       SystemConfigReloaded{},
}

// Known reports whether name is a catalogued event.
func Known(name string) bool {
	_, ok := known[topic.Topic(name)]
	return ok
}

// Names returns every catalogued event name, sorted.
func Names() []string {
	names := make([]string, 0, len(known))
	for t := range known {
		names = append(names, t.String())
	}
	slices.Sort(names)
	return names
}

// Publish publishes p under its own event name.
// A Raw payload is published with its Data map as the payload; its name only
// has to be accepted by the bus, not be a well-formed topic.
func Publish(ctx context.Context, e Emitter, p Payload, opts ...event.PublishOption) (string, error) {
	name := p.EventName()
	raw, isRaw := p.(Raw)
	if !isRaw && !name.IsValid() {
		return "", fmt.Errorf("%w: %q", event.ErrInvalidEventName, name)
	}

	var payload any = p
	if isRaw {
		payload = raw.Data
	}
	return e.Publish(ctx, name.String(), payload, opts...)
}

// Subscribe registers fn for the event named by T.
// Events whose payload is not a T (or non-nil *T) are skipped.
func Subscribe[T Payload](b *event.Bus, fn func(ctx context.Context, evt event.Event, payload T) error, opts ...event.SubscribeOption) (event.Unsubscribe, error) {
	if fn == nil {
		return nil, event.ErrNilHandler
	}

	var zero T
	name := zero.EventName()
	if !name.IsValid() {
		return nil, fmt.Errorf("%w: %q", event.ErrInvalidEventName, name)
	}

	return b.SubscribeFunc(name.String(), func(ctx context.Context, evt event.Event) error {
		switch p := evt.Payload.(type) {
		case T:
			return fn(ctx, evt, p)
		case *T:
			if p != nil {
				return fn(ctx, evt, *p)
			}
		}
		return nil
	}, opts...)
}

// Decode returns the payload of evt as a T.
func Decode[T Payload](evt event.Event) (T, bool) {
	switch p := evt.Payload.(type) {
	case T:
		return p, true
	case *T:
		if p != nil {
			return *p, true
		}
	}
	var zero T
	return zero, false
}
