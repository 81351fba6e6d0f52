package config

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "GATEKEEP_"

// LookupFunc looks up an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// envSetter parses one raw value into the config.
type envSetter func(cfg *Config, raw string) error

// envMapping maps variable names (without prefix) to setters.
var envMapping = map[string]envSetter{
	"LOG_LEVEL":  setString(func(c *Config) *string { return &c.Log.Level }),
	"LOG_FORMAT": setString(func(c *Config) *string { return &c.Log.Format }),
	"LOG_EVENTS": setBool(func(c *Config) *bool { return &c.Log.Events }),

	"BUS_ASYNC":         setBool(func(c *Config) *bool { return &c.Bus.Async }),
	"BUS_WORKERS":       setInt(func(c *Config) *int { return &c.Bus.Workers }),
	"BUS_DRAIN_TIMEOUT": setDuration(func(c *Config) *Duration { return &c.Bus.DrainTimeout }),

	"AUTH_TOKEN_SECRET": setString(func(c *Config) *string { return &c.Auth.TokenSecret }),
	"AUTH_TOKEN_TTL":    setDuration(func(c *Config) *Duration { return &c.Auth.TokenTTL }),
	"AUTH_BCRYPT_COST":  setInt(func(c *Config) *int { return &c.Auth.BcryptCost }),
	"AUTH_LOGIN_RATE":   setFloat(func(c *Config) *float64 { return &c.Auth.LoginRate }),
	"AUTH_LOGIN_BURST":  setInt(func(c *Config) *int { return &c.Auth.LoginBurst }),
	"AUTH_RESET_TTL":    setDuration(func(c *Config) *Duration { return &c.Auth.ResetTTL }),

	"STORE_DRIVER": setString(func(c *Config) *string { return &c.Store.Driver }),
	"STORE_DSN":    setString(func(c *Config) *string { return &c.Store.DSN }),

	"HTTP_LISTEN":           setString(func(c *Config) *string { return &c.HTTP.Listen }),
	"HTTP_READ_TIMEOUT":     setDuration(func(c *Config) *Duration { return &c.HTTP.ReadTimeout }),
	"HTTP_SHUTDOWN_TIMEOUT": setDuration(func(c *Config) *Duration { return &c.HTTP.ShutdownTimeout }),

	"AVATAR_SIZE":      setInt(func(c *Config) *int { return &c.Avatar.Size }),
	"AVATAR_MAX_BYTES": setInt64(func(c *Config) *int64 { return &c.Avatar.MaxBytes }),
}

// EnvVars returns the names of every recognised environment variable.
func EnvVars() []string {
	names := make([]string, 0, len(envMapping))
	for name := range envMapping {
		names = append(names, EnvPrefix+name)
	}
	return names
}

// ApplyEnv overrides cfg with GATEKEEP_* variables found through lookup.
// Empty values are treated as set. Every unparsable variable is reported.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	var errs error
	for name, set := range envMapping {
		raw, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		if err := set(cfg, strings.TrimSpace(raw)); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		}
	}
	return errs
}

func setString(field func(*Config) *string) envSetter {
	return func(cfg *Config, raw string) error {
		*field(cfg) = raw
		return nil
	}
}

func setBool(field func(*Config) *bool) envSetter {
	return func(cfg *Config, raw string) error {
		switch strings.ToLower(raw) {
		case "1", "true", "yes", "on":
			*field(cfg) = true
		case "0", "false", "no", "off":
			*field(cfg) = false
		default:
			return fmt.Errorf("invalid boolean %q", raw)
		}
		return nil
	}
}

func setInt(field func(*Config) *int) envSetter {
	return func(cfg *Config, raw string) error {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*field(cfg) = v
		return nil
	}
}

func setInt64(field func(*Config) *int64) envSetter {
	return func(cfg *Config, raw string) error {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		*field(cfg) = v
		return nil
	}
}

func setFloat(field func(*Config) *float64) envSetter {
	return func(cfg *Config, raw string) error {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		*field(cfg) = v
		return nil
	}
}

func setDuration(field func(*Config) *Duration) envSetter {
	return func(cfg *Config, raw string) error {
		return field(cfg).UnmarshalText([]byte(raw))
	}
}
