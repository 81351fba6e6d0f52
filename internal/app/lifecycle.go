package app

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/gatekeep/internal/config"
	"github.com/dshills/gatekeep/internal/event/events"
	"github.com/dshills/gatekeep/internal/logging"
)

// limiterPruneInterval is how often idle login limiter buckets are dropped.
const limiterPruneInterval = time.Minute

// Run serves the API and watches the config file until ctx is done or a
// component fails. It does not shut the application down.
func (app *Application) Run(ctx context.Context) error {
	if app.closed.Load() {
		return ErrShutdown
	}
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	cfg := app.Config()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.api.ListenAndServe(ctx, cfg.HTTP.Listen, cfg.HTTP.ReadTimeout.D(), cfg.HTTP.ShutdownTimeout.D())
	})

	if app.opts.ConfigPath != "" {
		w := config.NewWatcher(app.opts.Fs, app.opts.ConfigPath, app.onReload,
			config.WithWatcherLogger(logging.Component("config")),
			config.WithEnvLookup(app.opts.Env),
		)
		g.Go(func() error { return w.Run(ctx) })
	}

	g.Go(func() error {
		ticker := time.NewTicker(limiterPruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n := app.auth.Limiter().Prune(limiterPruneInterval); n > 0 {
					app.logger.WithField("buckets", n).Debug("Pruned idle login limiters.")
				}
			}
		}
	})

	app.logger.WithField("listen", cfg.HTTP.Listen).Info("Gatekeep running.")
	return g.Wait()
}

// onReload applies a reloaded config. Only logging settings take effect
// without a restart; the reload is announced either way.
func (app *Application) onReload(cfg *config.Config, err error) {
	evt := events.SystemConfigReloaded{Path: app.opts.ConfigPath}
	if err != nil {
		evt.Err = err.Error()
		app.logger.WithError(err).Warn("Config reload failed; keeping current settings.")
	} else {
		app.applyLogConfig(cfg)
	}

	if _, perr := events.Publish(context.Background(), app.bus, evt); perr != nil {
		app.logger.WithError(perr).Debug("Could not publish config reload.")
	}
}

func (app *Application) applyLogConfig(cfg *config.Config) {
	app.mu.Lock()
	defer app.mu.Unlock()

	level, format := cfg.Log.Level, cfg.Log.Format
	if app.opts.LogLevel != "" {
		level = app.opts.LogLevel
	}
	if app.opts.LogFormat != "" {
		format = app.opts.LogFormat
	}
	if err := logging.InitLogLevel(app.opts.Debug, level); err != nil {
		app.logger.WithError(err).Warn("Ignoring reloaded log level.")
		return
	}
	if err := logging.InitLogFormat(format); err != nil {
		app.logger.WithError(err).Warn("Ignoring reloaded log format.")
		return
	}
	app.config.Log = cfg.Log
	app.logger.WithField("level", level).Info("Log settings reloaded.")
}

// Shutdown releases subscriptions, drains and closes the bus, then closes
// the store. It is safe to call more than once.
func (app *Application) Shutdown(ctx context.Context) error {
	if !app.closed.CompareAndSwap(false, true) {
		return nil
	}

	if d := app.Config().Bus.DrainTimeout.D(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	for i := len(app.unsubs) - 1; i >= 0; i-- {
		app.unsubs[i]()
	}

	var errs error
	if err := app.bus.Close(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := app.store.Close(); err != nil {
		errs = multierr.Append(errs, err)
	}
	app.logger.Info("Gatekeep stopped.")
	return errs
}
