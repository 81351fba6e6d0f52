// Package httpapi serves the gatekeep REST API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/dshills/gatekeep/internal/auth"
	"github.com/dshills/gatekeep/internal/contacts"
	"github.com/dshills/gatekeep/internal/event"
	"github.com/dshills/gatekeep/internal/profile"
)

// Deps are the collaborators the API is served from.
type Deps struct {
	Bus      *event.Bus
	Auth     *auth.Service
	Contacts *contacts.Service
	Profile  *profile.Service

	// Registry is served on /metrics. REST operation metrics are added to it.
	Registry *prometheus.Registry

	// RequestRate and RequestBurst bound the request rate of the whole API.
	// A zero RequestRate disables the limit.
	RequestRate  rate.Limit
	RequestBurst int

	Logger *log.Entry
}

// Server handles API requests.
type Server struct {
	deps    Deps
	logger  *log.Entry
	metrics *restMetrics
	handler http.Handler
}

// NewServer builds the router for deps.
func NewServer(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = log.WithField("component", "httpapi")
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}

	m, err := newRESTMetrics(deps.Registry)
	if err != nil {
		return nil, err
	}

	s := &Server{deps: deps, logger: deps.Logger, metrics: m}
	s.handler = s.newRouter()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down within
// shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("address", addr).Info("Activating HTTP REST frontend.")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.WithField("address", addr).Info("Deactivating HTTP REST frontend.")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
