package events

import "github.com/dshills/gatekeep/internal/event/topic"

// Contact event topics.
const (
	TopicContactAdded     topic.Topic = "contact:added"
	TopicContactRemoved   topic.Topic = "contact:removed"
	TopicContactBlocked   topic.Topic = "contact:blocked"
	TopicContactUnblocked topic.Topic = "contact:unblocked"
)

// ContactAdded is published when a user adds another user as a contact.
type ContactAdded struct {
	OwnerID   string
	ContactID string
}

// EventName implements Payload.
func (ContactAdded) EventName() topic.Topic { return TopicContactAdded }

// ContactRemoved is published when a contact is removed.
type ContactRemoved struct {
	OwnerID   string
	ContactID string
}

// EventName implements Payload.
func (ContactRemoved) EventName() topic.Topic { return TopicContactRemoved }

// ContactBlocked is published when a contact is blocked.
type ContactBlocked struct {
	OwnerID   string
	ContactID string
}

// EventName implements Payload.
func (ContactBlocked) EventName() topic.Topic { return TopicContactBlocked }

// ContactUnblocked is published when a block is lifted.
type ContactUnblocked struct {
	OwnerID   string
	ContactID string
}

// EventName implements Payload.
func (ContactUnblocked) EventName() topic.Topic { return TopicContactUnblocked }
