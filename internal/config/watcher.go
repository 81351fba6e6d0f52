package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const defaultDebounce = 100 * time.Millisecond

// ReloadFunc receives the result of a reload. On failure cfg is nil and err
// describes why; the caller keeps its previous configuration.
type ReloadFunc func(cfg *Config, err error)

// Watcher reloads a configuration file when it changes on disk.
//
// The containing directory is watched rather than the file itself so that
// editors which save by writing a temporary file and renaming it are seen.
type Watcher struct {
	fs       afero.Fs
	path     string
	onReload ReloadFunc
	debounce time.Duration
	logger   *log.Entry
	lookup   LookupFunc
	retry    func() backoff.BackOff
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long the watcher waits for writes to settle.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger sets the logger used by the watcher.
func WithWatcherLogger(l *log.Entry) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithEnvLookup sets the environment lookup applied on every reload.
func WithEnvLookup(lookup LookupFunc) WatcherOption {
	return func(w *Watcher) {
		if lookup != nil {
			w.lookup = lookup
		}
	}
}

// NewWatcher creates a watcher for the file at path.
func NewWatcher(fsys afero.Fs, path string, onReload ReloadFunc, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		fs:       fsys,
		path:     filepath.Clean(path),
		onReload: onReload,
		debounce: defaultDebounce,
		logger:   log.WithField("component", "config-watcher"),
		retry: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			b.MaxElapsedTime = time.Minute
			return b
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.lookup == nil {
		w.lookup = func(string) (string, bool) { return "", false }
	}
	return w
}

// Path returns the watched file path.
func (w *Watcher) Path() string {
	return w.path
}

// Run watches until ctx is done. It returns nil on cancellation and an error
// only if the watch could not be established.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	dir := filepath.Dir(w.path)
	if err := w.addWatch(ctx, fsw, dir); err != nil {
		return err
	}
	w.logger.WithField("path", w.path).Info("Watching configuration file.")

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			w.logger.WithFields(log.Fields{"path": ev.Name, "op": ev.Op.String()}).Debug("Configuration file changed.")

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			w.reload()

		case werr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(werr).Warn("Watch error, re-adding watch.")
			_ = fsw.Remove(dir)
			if err := w.addWatch(ctx, fsw, dir); err != nil {
				return err
			}
		}
	}
}

// addWatch adds dir to fsw, retrying with exponential backoff.
func (w *Watcher) addWatch(ctx context.Context, fsw *fsnotify.Watcher, dir string) error {
	notify := func(err error, d time.Duration) {
		w.logger.WithFields(log.Fields{
			"dir":       dir,
			"increment": d,
			"err":       err,
		}).Debug("Directory not watchable yet, waiting.")
	}
	return backoff.RetryNotify(func() error {
		return fsw.Add(dir)
	}, backoff.WithContext(w.retry(), ctx), notify)
}

// reload loads and validates the file and reports the result.
func (w *Watcher) reload() {
	// A rename-based save removes the file briefly; wait for its replacement.
	if ok, _ := afero.Exists(w.fs, w.path); !ok {
		w.logger.WithField("path", w.path).Debug("Configuration file missing, keeping current configuration.")
		return
	}

	cfg, err := LoadWithEnv(w.fs, w.path, w.lookup)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		w.logger.WithError(err).Warn("Configuration reload rejected.")
		w.onReload(nil, err)
		return
	}
	w.logger.Info("Configuration reloaded.")
	w.onReload(cfg, nil)
}
