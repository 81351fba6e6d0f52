package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Route is one API endpoint.
type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc

	// Authenticated routes require a bearer session token.
	Authenticated bool

	// LogLevel is the level request completion is logged at.
	LogLevel log.Level
}

// Routes is a list of routes.
type Routes []Route

func (s *Server) routes() Routes {
	return Routes{
		{"Register", http.MethodPost, "/v1/register", s.register, false, log.InfoLevel},
		{"Login", http.MethodPost, "/v1/login", s.login, false, log.InfoLevel},
		{"Logout", http.MethodPost, "/v1/logout", s.logout, true, log.InfoLevel},
		{"ChangePassword", http.MethodPost, "/v1/password", s.changePassword, true, log.InfoLevel},
		{"RequestPasswordReset", http.MethodPost, "/v1/password/reset-request", s.requestPasswordReset, false, log.InfoLevel},
		{"ResetPassword", http.MethodPost, "/v1/password/reset", s.resetPassword, false, log.InfoLevel},
		{"DeleteAccount", http.MethodDelete, "/v1/account", s.deleteAccount, true, log.InfoLevel},
		{"GetProfile", http.MethodGet, "/v1/profile", s.getProfile, true, log.DebugLevel},
		{"UpdateProfile", http.MethodPut, "/v1/profile", s.updateProfile, true, log.InfoLevel},
		{"GetAvatar", http.MethodGet, "/v1/profile/avatar", s.getAvatar, true, log.DebugLevel},
		{"SetAvatar", http.MethodPut, "/v1/profile/avatar", s.setAvatar, true, log.InfoLevel},
		{"ListContacts", http.MethodGet, "/v1/contacts", s.listContacts, true, log.DebugLevel},
		{"AddContact", http.MethodPost, "/v1/contacts", s.addContact, true, log.InfoLevel},
		{"RemoveContact", http.MethodDelete, "/v1/contacts/{id}", s.removeContact, true, log.InfoLevel},
		{"BlockContact", http.MethodPost, "/v1/contacts/{id}/block", s.blockContact, true, log.InfoLevel},
		{"UnblockContact", http.MethodPost, "/v1/contacts/{id}/unblock", s.unblockContact, true, log.InfoLevel},
		{"GetStats", http.MethodGet, "/v1/stats", s.getStats, false, log.TraceLevel},
	}
}

func (s *Server) newRouter() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)

	var limit func(http.Handler) http.Handler
	if s.deps.RequestRate > 0 {
		limit = rateLimiterMiddleware(s.deps.RequestRate, s.deps.RequestBurst)
	}

	for _, route := range s.routes() {
		var handler http.Handler = route.HandlerFunc
		if route.Authenticated {
			handler = s.authenticate(handler)
		}
		handler = s.withEmitter(handler)
		handler = s.Logger(handler, route.Name, route.LogLevel)
		if limit != nil {
			handler = limit(handler)
		}

		router.
			Methods(route.Method).
			Path(route.Pattern).
			Name(route.Name).
			Handler(handler)
	}

	router.
		Methods(http.MethodGet).
		Path("/metrics").
		Name("Metrics").
		Handler(promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{}))

	return router
}
