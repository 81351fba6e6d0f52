package events

import "github.com/dshills/gatekeep/internal/event/topic"

// Security and system event topics.
const (
	// TopicSecurityRateLimited is published when a caller exceeds a rate limit.
	TopicSecurityRateLimited topic.Topic = "security:rate_limited"

	// TopicSystemConfigReloaded is published after the configuration file is reloaded.
	TopicSystemConfigReloaded topic.Topic = "system:config_reloaded"
)

// SecurityRateLimited is published when a caller exceeds a rate limit.
type SecurityRateLimited struct {
	// Scope names the limited operation (e.g., "login").
	Scope string

	// Key is the limited identity, such as an email address.
	Key string

	SourceAddr string
}

// EventName implements Payload.
func (SecurityRateLimited) EventName() topic.Topic { return TopicSecurityRateLimited }

// SystemConfigReloaded is published after the configuration file is reloaded.
type SystemConfigReloaded struct {
	Path string

	// Err is set when the reload failed and the previous config stays active.
	Err string
}

// EventName implements Payload.
func (SystemConfigReloaded) EventName() topic.Topic { return TopicSystemConfigReloaded }
