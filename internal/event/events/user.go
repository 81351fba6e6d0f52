package events

import (
	"time"

	"github.com/dshills/gatekeep/internal/event/topic"
)

// User event topics.
const (
	// TopicUserRegistered is published after an account is created.
	TopicUserRegistered topic.Topic = "user:registered"

	// TopicUserLogin is published after a successful login.
	TopicUserLogin topic.Topic = "user:login"

	// TopicUserLoginFailed is published when credentials are rejected.
	TopicUserLoginFailed topic.Topic = "user:login_failed"

	// TopicUserLogout is published when a session is ended by its owner.
	TopicUserLogout topic.Topic = "user:logout"

	// TopicUserPasswordChanged is published after a password change.
	TopicUserPasswordChanged topic.Topic = "user:password_changed"

	// TopicUserPasswordResetRequested is published when a reset token is issued.
	TopicUserPasswordResetRequested topic.Topic = "user:password_reset_requested"

	// TopicUserPasswordReset is published after a password is reset with a token.
	TopicUserPasswordReset topic.Topic = "user:password_reset"

	// TopicUserDeleted is published after an account is deleted.
	TopicUserDeleted topic.Topic = "user:deleted"
)

// UserRegistered is published after an account is created.
type UserRegistered struct {
	UserID      string
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

// EventName implements Payload.
func (UserRegistered) EventName() topic.Topic { return TopicUserRegistered }

// UserLogin is published after a successful login.
type UserLogin struct {
	UserID    string
	SessionID string
	ExpiresAt time.Time
}

// EventName implements Payload.
func (UserLogin) EventName() topic.Topic { return TopicUserLogin }

// LoginFailureReason describes why a login was rejected.
type LoginFailureReason string

// Login failure reasons.
const (
	LoginUnknownEmail LoginFailureReason = "unknown_email"
	LoginBadPassword  LoginFailureReason = "bad_password"
	LoginRateLimited  LoginFailureReason = "rate_limited"
)

// UserLoginFailed is published when credentials are rejected.
// UserID is empty when the email is unknown.
type UserLoginFailed struct {
	Email  string
	UserID string
	Reason LoginFailureReason
}

// EventName implements Payload.
func (UserLoginFailed) EventName() topic.Topic { return TopicUserLoginFailed }

// UserLogout is published when a session is ended by its owner.
type UserLogout struct {
	UserID    string
	SessionID string
}

// EventName implements Payload.
func (UserLogout) EventName() topic.Topic { return TopicUserLogout }

// UserPasswordChanged is published after a password change.
type UserPasswordChanged struct {
	UserID string

	// RevokedSessions is the number of other sessions ended by the change.
	RevokedSessions int
}

// EventName implements Payload.
func (UserPasswordChanged) EventName() topic.Topic { return TopicUserPasswordChanged }

// UserPasswordResetRequested is published when a reset token is issued.
// Delivery of the token is up to subscribers.
type UserPasswordResetRequested struct {
	UserID    string
	Email     string
	Token     string
	ExpiresAt time.Time
}

// EventName implements Payload.
func (UserPasswordResetRequested) EventName() topic.Topic { return TopicUserPasswordResetRequested }

// UserPasswordReset is published after a password is reset with a token.
type UserPasswordReset struct {
	UserID string
}

// EventName implements Payload.
func (UserPasswordReset) EventName() topic.Topic { return TopicUserPasswordReset }

// UserDeleted is published after an account is deleted.
type UserDeleted struct {
	UserID string
	Email  string
}

// EventName implements Payload.
func (UserDeleted) EventName() topic.Topic { return TopicUserDeleted }
