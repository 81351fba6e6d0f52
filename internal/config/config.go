package config

import (
	"time"
)

// Config is the complete gatekeep configuration.
type Config struct {
	Log    LogConfig    `toml:"log" yaml:"log"`
	Bus    BusConfig    `toml:"bus" yaml:"bus"`
	Auth   AuthConfig   `toml:"auth" yaml:"auth"`
	Store  StoreConfig  `toml:"store" yaml:"store"`
	HTTP   HTTPConfig   `toml:"http" yaml:"http"`
	Avatar AvatarConfig `toml:"avatar" yaml:"avatar"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is a logrus level name (debug, info, warn, error).
	Level string `toml:"level" yaml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format" yaml:"format"`

	// Events logs every published event when true.
	Events bool `toml:"events" yaml:"events"`
}

// BusConfig configures the event bus.
type BusConfig struct {
	// Async makes Publish queue dispatches unless a publisher asks otherwise.
	Async bool `toml:"async" yaml:"async"`

	// Workers is the pool size for queued dispatches. Zero means one per CPU.
	Workers int `toml:"workers" yaml:"workers"`

	// DrainTimeout bounds how long shutdown waits for queued dispatches.
	DrainTimeout Duration `toml:"drain_timeout" yaml:"drain_timeout"`
}

// AuthConfig configures accounts, sessions and login throttling.
type AuthConfig struct {
	// TokenSecret signs session tokens. When empty a random secret is
	// generated at startup and tokens do not survive a restart.
	TokenSecret string `toml:"token_secret" yaml:"token_secret"`

	// TokenTTL is the lifetime of a session token.
	TokenTTL Duration `toml:"token_ttl" yaml:"token_ttl"`

	// BcryptCost is the bcrypt work factor for password hashes.
	BcryptCost int `toml:"bcrypt_cost" yaml:"bcrypt_cost"`

	// LoginRate is the sustained number of login attempts per second per email.
	LoginRate float64 `toml:"login_rate" yaml:"login_rate"`

	// LoginBurst is the number of login attempts allowed in a burst.
	LoginBurst int `toml:"login_burst" yaml:"login_burst"`

	// ResetTTL is the lifetime of a password reset token.
	ResetTTL Duration `toml:"reset_ttl" yaml:"reset_ttl"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Driver is "memory" or "sqlite".
	Driver string `toml:"driver" yaml:"driver"`

	// DSN is the sqlite database path or URI.
	DSN string `toml:"dsn" yaml:"dsn"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Listen          string   `toml:"listen" yaml:"listen"`
	ReadTimeout     Duration `toml:"read_timeout" yaml:"read_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// AvatarConfig limits avatar uploads.
type AvatarConfig struct {
	// Size is the edge length in pixels of stored avatars.
	Size int `toml:"size" yaml:"size"`

	// MaxBytes is the largest accepted upload.
	MaxBytes int64 `toml:"max_bytes" yaml:"max_bytes"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Events: true,
		},
		Bus: BusConfig{
			Async:        false,
			Workers:      0,
			DrainTimeout: Duration(5 * time.Second),
		},
		Auth: AuthConfig{
			TokenTTL:   Duration(24 * time.Hour),
			BcryptCost: 10,
			LoginRate:  0.2,
			LoginBurst: 5,
			ResetTTL:   Duration(time.Hour),
		},
		Store: StoreConfig{
			Driver: "memory",
		},
		HTTP: HTTPConfig{
			Listen:          ":8080",
			ReadTimeout:     Duration(15 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Avatar: AvatarConfig{
			Size:     256,
			MaxBytes: 5 << 20,
		},
	}
}

// Duration is a time.Duration that reads and writes as a string like "15s".
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

// String returns the duration formatted by time.Duration.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
