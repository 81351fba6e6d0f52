package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"

	"github.com/dshills/gatekeep/internal/auth"
	"github.com/dshills/gatekeep/internal/config"
	"github.com/dshills/gatekeep/internal/contacts"
	"github.com/dshills/gatekeep/internal/event"
	"github.com/dshills/gatekeep/internal/httpapi"
	"github.com/dshills/gatekeep/internal/logging"
	"github.com/dshills/gatekeep/internal/metrics"
	"github.com/dshills/gatekeep/internal/profile"
	"github.com/dshills/gatekeep/internal/store"
)

// apiRequestRate bounds the whole API. Per-account login limits are
// configured separately.
const (
	apiRequestRate  = 200
	apiRequestBurst = 400
)

// bootstrapper handles component initialization with cleanup on failure.
type bootstrapper struct {
	app       *Application
	opts      Options
	initOrder []string
}

func newBootstrapper(app *Application, opts Options) *bootstrapper {
	return &bootstrapper{
		app:       app,
		opts:      opts,
		initOrder: make([]string, 0, 8),
	}
}

// bootstrap initializes all components in dependency order.
// On failure, it cleans up already-initialized components.
func (b *bootstrapper) bootstrap() error {
	steps := []func() error{
		b.initConfig,
		b.initLogging,
		b.initEventBus,
		b.initStore,
		b.initServices,
		b.initMetrics,
		b.initAPI,
		b.initSubscriptions,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			b.cleanup()
			return err
		}
	}
	return nil
}

func (b *bootstrapper) initConfig() error {
	if b.opts.Fs == nil {
		b.opts.Fs = afero.NewOsFs()
		b.app.opts.Fs = b.opts.Fs
	}
	if b.opts.Env == nil {
		b.opts.Env = os.LookupEnv
		b.app.opts.Env = b.opts.Env
	}

	cfg, err := config.LoadWithEnv(b.opts.Fs, b.opts.ConfigPath, b.opts.Env)
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}
	b.applyOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return &InitError{Component: "config", Err: err}
	}

	b.app.config = cfg
	b.initOrder = append(b.initOrder, "config")
	return nil
}

func (b *bootstrapper) applyOverrides(cfg *config.Config) {
	if b.opts.LogLevel != "" {
		cfg.Log.Level = b.opts.LogLevel
	}
	if b.opts.LogFormat != "" {
		cfg.Log.Format = b.opts.LogFormat
	}
	if b.opts.Configure != nil {
		b.opts.Configure(cfg)
	}
}

func (b *bootstrapper) initLogging() error {
	cfg := b.app.config
	if err := logging.InitLogLevel(b.opts.Debug, cfg.Log.Level); err != nil {
		return &InitError{Component: "logging", Err: err}
	}
	if err := logging.InitLogFormat(cfg.Log.Format); err != nil {
		return &InitError{Component: "logging", Err: err}
	}
	b.app.logger = logging.Component("app")
	return nil
}

func (b *bootstrapper) initEventBus() error {
	cfg := b.app.config.Bus
	opts := []event.BusOption{
		event.WithAsync(cfg.Async),
		event.WithLogger(logging.Component("event-bus")),
	}
	if cfg.Workers > 0 {
		opts = append(opts, event.WithWorkers(cfg.Workers))
	}

	b.app.bus = event.NewBus(opts...)
	b.initOrder = append(b.initOrder, "eventBus")

	if b.app.config.Log.Events {
		unsub, err := logging.NewEventLogger(logging.Component("events"), log.DebugLevel).Attach(b.app.bus)
		if err != nil {
			return &InitError{Component: "event log", Err: err}
		}
		b.app.unsubs = append(b.app.unsubs, unsub)
	}
	return nil
}

func (b *bootstrapper) initStore() error {
	cfg := b.app.config.Store
	st, err := store.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return &InitError{Component: "store", Err: err}
	}
	b.app.store = st
	b.initOrder = append(b.initOrder, "store")
	b.app.logger.WithField("driver", cfg.Driver).Info("Store opened.")
	return nil
}

func (b *bootstrapper) initServices() error {
	cfg := b.app.config
	if cfg.Auth.TokenSecret == "" {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return &InitError{Component: "auth", Err: err}
		}
		cfg.Auth.TokenSecret = hex.EncodeToString(secret)
		b.app.logger.Warn("No token secret configured; sessions will not survive a restart.")
	}

	b.app.auth = auth.NewService(b.app.store, b.app.bus, cfg.Auth, auth.WithLogger(logging.Component("auth")))
	b.app.contacts = contacts.NewService(b.app.store, b.app.bus, logging.Component("contacts"))
	b.app.profile = profile.NewService(b.app.store, b.app.bus, cfg.Avatar, logging.Component("profile"))
	return nil
}

func (b *bootstrapper) initMetrics() error {
	b.app.collector = metrics.NewCollector(b.app.bus)
	unsub, err := b.app.collector.Attach()
	if err != nil {
		return &InitError{Component: "metrics", Err: err}
	}
	b.app.unsubs = append(b.app.unsubs, unsub)

	reg, err := metrics.Register(b.app.collector)
	if err != nil {
		return &InitError{Component: "metrics", Err: err}
	}
	b.app.registry = reg
	return nil
}

func (b *bootstrapper) initAPI() error {
	api, err := httpapi.NewServer(httpapi.Deps{
		Bus:          b.app.bus,
		Auth:         b.app.auth,
		Contacts:     b.app.contacts,
		Profile:      b.app.profile,
		Registry:     b.app.registry,
		RequestRate:  rate.Limit(apiRequestRate),
		RequestBurst: apiRequestBurst,
		Logger:       logging.Component("httpapi"),
	})
	if err != nil {
		return &InitError{Component: "http api", Err: err}
	}
	b.app.api = api
	return nil
}

func (b *bootstrapper) initSubscriptions() error {
	if err := b.app.wireSubscriptions(); err != nil {
		return &InitError{Component: "subscriptions", Err: err}
	}
	return nil
}

// cleanup releases components in reverse initialization order.
func (b *bootstrapper) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := len(b.initOrder) - 1; i >= 0; i-- {
		b.cleanupComponent(ctx, b.initOrder[i])
	}
}

func (b *bootstrapper) cleanupComponent(ctx context.Context, component string) {
	switch component {
	case "eventBus":
		if b.app.bus != nil {
			_ = b.app.bus.Close(ctx)
		}
	case "store":
		if b.app.store != nil {
			_ = b.app.store.Close()
		}
	case "config":
		b.app.config = nil
	}
}
