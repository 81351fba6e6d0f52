package events

import (
	"time"

	"github.com/dshills/gatekeep/internal/event/topic"
)

// Session event topics.
const (
	// TopicSessionCreated is published when a token is issued for a session.
	TopicSessionCreated topic.Topic = "session:created"

	// TopicSessionRevoked is published when a session stops being accepted.
	TopicSessionRevoked topic.Topic = "session:revoked"
)

// SessionCreated is published when a token is issued for a session.
type SessionCreated struct {
	SessionID string
	UserID    string
	ExpiresAt time.Time
}

// EventName implements Payload.
func (SessionCreated) EventName() topic.Topic { return TopicSessionCreated }

// SessionRevokeReason describes why a session was revoked.
type SessionRevokeReason string

// Session revoke reasons.
const (
	RevokeLogout          SessionRevokeReason = "logout"
	RevokePasswordChanged SessionRevokeReason = "password_changed"
	RevokePasswordReset   SessionRevokeReason = "password_reset"
	RevokeAccountDeleted  SessionRevokeReason = "account_deleted"
)

// SessionRevoked is published when a session stops being accepted.
type SessionRevoked struct {
	SessionID string
	UserID    string
	Reason    SessionRevokeReason
}

// EventName implements Payload.
func (SessionRevoked) EventName() topic.Topic { return TopicSessionRevoked }
