package events

import "github.com/dshills/gatekeep/internal/event/topic"

// Profile event topics.
const (
	// TopicProfileUpdated is published after profile fields change.
	TopicProfileUpdated topic.Topic = "profile:updated"

	// TopicProfileAvatarUpdated is published after a new avatar is stored.
	TopicProfileAvatarUpdated topic.Topic = "profile:avatar_updated"
)

// ProfileUpdated is published after profile fields change.
type ProfileUpdated struct {
	UserID string

	// Fields lists the names of the fields that changed.
	Fields []string
}

// EventName implements Payload.
func (ProfileUpdated) EventName() topic.Topic { return TopicProfileUpdated }

// ProfileAvatarUpdated is published after a new avatar is stored.
type ProfileAvatarUpdated struct {
	UserID string

	// SourceFormat is the decoded upload format (png, jpeg, gif).
	SourceFormat string

	// Size is the edge length in pixels of the stored square image.
	Size int

	// Bytes is the size of the stored PNG.
	Bytes int
}

// EventName implements Payload.
func (ProfileAvatarUpdated) EventName() topic.Topic { return TopicProfileAvatarUpdated }
