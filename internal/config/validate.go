package config

import (
	"strings"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/crypto/bcrypt"
)

// minSecretLength is the shortest accepted explicit token secret.
const minSecretLength = 16

// Validate checks every setting and returns all problems combined with
// multierr. Each problem is a *ValidationError.
func (c *Config) Validate() error {
	var errs error
	add := func(path, msg string, value any) {
		errs = multierr.Append(errs, &ValidationError{Path: path, Message: msg, Value: value})
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		add("log.level", "unknown log level", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		add("log.format", "must be text or json", c.Log.Format)
	}

	if c.Bus.Workers < 0 {
		add("bus.workers", "must not be negative", c.Bus.Workers)
	}
	if c.Bus.DrainTimeout < 0 {
		add("bus.drain_timeout", "must not be negative", c.Bus.DrainTimeout)
	}

	if s := c.Auth.TokenSecret; s != "" && len(s) < minSecretLength {
		add("auth.token_secret", "too short", len(s))
	}
	if c.Auth.TokenTTL <= 0 {
		add("auth.token_ttl", "must be positive", c.Auth.TokenTTL)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		add("auth.bcrypt_cost", "out of range", c.Auth.BcryptCost)
	}
	if c.Auth.LoginRate <= 0 {
		add("auth.login_rate", "must be positive", c.Auth.LoginRate)
	}
	if c.Auth.LoginBurst < 1 {
		add("auth.login_burst", "must be at least 1", c.Auth.LoginBurst)
	}
	if c.Auth.ResetTTL <= 0 {
		add("auth.reset_ttl", "must be positive", c.Auth.ResetTTL)
	}

	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.DSN == "" {
			add("store.dsn", "required for sqlite", c.Store.DSN)
		}
	default:
		add("store.driver", "must be memory or sqlite", c.Store.Driver)
	}

	if c.HTTP.Listen == "" {
		add("http.listen", "required", c.HTTP.Listen)
	}

	if c.Avatar.Size < 16 || c.Avatar.Size > 2048 {
		add("avatar.size", "must be between 16 and 2048", c.Avatar.Size)
	}
	if c.Avatar.MaxBytes <= 0 {
		add("avatar.max_bytes", "must be positive", c.Avatar.MaxBytes)
	}

	return errs
}
