package topic

import "strings"

// Topic is a namespaced event name of the form "domain:action".
// Examples: "user:registered", "contact:blocked", "system:config_reloaded"
//
// Names without a separator are accepted as well; they belong to no domain.
type Topic string

// Separator splits the domain from the action.
const Separator = ":"

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Domain returns the part before the separator, or "" if there is none.
//
// Example: "user:login" -> "user"
func (t Topic) Domain() string {
	s := string(t)
	idx := strings.Index(s, Separator)
	if idx < 0 {
		return ""
	}
	return s[:idx]
}

// Action returns the part after the separator, or the whole topic if there is none.
//
// Example: "user:login" -> "login"
func (t Topic) Action() string {
	s := string(t)
	idx := strings.Index(s, Separator)
	if idx < 0 {
		return s
	}
	return s[idx+1:]
}

// IsNamespaced returns true if the topic carries a domain.
func (t Topic) IsNamespaced() bool {
	return strings.Contains(string(t), Separator)
}

// InDomain returns true if the topic belongs to the given domain.
func (t Topic) InDomain(domain string) bool {
	return t.IsNamespaced() && t.Domain() == domain
}

// IsValid returns true if the topic is usable as an event name.
// A valid topic:
//   - Is not empty and contains no whitespace
//   - If namespaced, has exactly one separator with non-empty parts on both sides
func (t Topic) IsValid() bool {
	s := string(t)
	if s == "" {
		return false
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	if !t.IsNamespaced() {
		return true
	}
	if strings.Count(s, Separator) != 1 {
		return false
	}
	return t.Domain() != "" && t.Action() != ""
}

// Join builds a topic from a domain and an action.
func Join(domain, action string) Topic {
	if domain == "" {
		return Topic(action)
	}
	return Topic(domain + Separator + action)
}
