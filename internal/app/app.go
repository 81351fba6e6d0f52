// Package app wires configuration, the event bus, storage, services and the
// HTTP API into a runnable gatekeep server.
package app

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/dshills/gatekeep/internal/auth"
	"github.com/dshills/gatekeep/internal/config"
	"github.com/dshills/gatekeep/internal/contacts"
	"github.com/dshills/gatekeep/internal/event"
	"github.com/dshills/gatekeep/internal/httpapi"
	"github.com/dshills/gatekeep/internal/metrics"
	"github.com/dshills/gatekeep/internal/profile"
	"github.com/dshills/gatekeep/internal/store"
)

// Application owns every gatekeep component.
type Application struct {
	mu sync.Mutex

	// Core infrastructure
	config *config.Config
	logger *log.Entry
	bus    *event.Bus
	store  store.Store

	// Services
	auth     *auth.Service
	contacts *contacts.Service
	profile  *profile.Service

	// Observability and transport
	collector *metrics.Collector
	registry  *prometheus.Registry
	api       *httpapi.Server

	// Subscriptions made during bootstrap, released on shutdown.
	unsubs []event.Unsubscribe

	running atomic.Bool
	closed  atomic.Bool

	opts Options
}

// Options configures the application.
type Options struct {
	// ConfigPath is the TOML or YAML config file. Empty means defaults and
	// environment only; a missing file is not an error.
	ConfigPath string

	// Fs is the filesystem the config is read from. Defaults to the OS.
	Fs afero.Fs

	// Env looks up environment overrides. Defaults to os.LookupEnv.
	Env config.LookupFunc

	// Debug forces debug logging.
	Debug bool

	// LogLevel and LogFormat override the configured values when set.
	LogLevel  string
	LogFormat string

	// Configure, when set, adjusts the loaded config before validation.
	Configure func(*config.Config)
}

// New creates an Application and starts every component except the HTTP
// server and config watcher, which Run starts.
func New(opts Options) (*Application, error) {
	app := &Application{opts: opts}
	if err := newBootstrapper(app, opts).bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Config returns the active configuration.
func (app *Application) Config() *config.Config {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.config
}

// Bus returns the application event bus.
func (app *Application) Bus() *event.Bus { return app.bus }

// Store returns the persistence layer.
func (app *Application) Store() store.Store { return app.store }

// Auth returns the account service.
func (app *Application) Auth() *auth.Service { return app.auth }

// Contacts returns the contact list service.
func (app *Application) Contacts() *contacts.Service { return app.contacts }

// Profile returns the profile service.
func (app *Application) Profile() *profile.Service { return app.profile }

// Handler returns the HTTP API handler.
func (app *Application) Handler() http.Handler { return app.api }

// IsRunning reports whether Run is in progress.
func (app *Application) IsRunning() bool { return app.running.Load() }
