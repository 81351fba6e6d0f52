package httpapi

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/dshills/gatekeep/internal/auth"
	"github.com/dshills/gatekeep/internal/event"
	"github.com/dshills/gatekeep/internal/event/events"
)

const logInterval = 10 * time.Second

type ctxKey int

const (
	sessionKey ctxKey = iota
	tokenKey
	requestIDKey
)

type restMetrics struct {
	ops      *prometheus.CounterVec
	duration *prometheus.SummaryVec
}

func newRESTMetrics(reg prometheus.Registerer) (*restMetrics, error) {
	m := &restMetrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatekeep",
			Subsystem: "rest",
			Name:      "ops_total",
			Help:      "The total number of handled REST operations",
		}, []string{"route", "code"}),
		duration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace:  "gatekeep",
			Subsystem:  "rest",
			Name:       "ops_seconds_total",
			Help:       "The total number of seconds spent handling REST operations",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"route"}),
	}
	for _, c := range []prometheus.Collector{m.ops, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logger logs each request at level and records REST metrics.
func (s *Server) Logger(inner http.Handler, name string, level log.Level) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, requestID))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		w.Header().Set("X-Request-ID", requestID)
		inner.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		s.metrics.ops.WithLabelValues(name, strconv.Itoa(rec.status)).Inc()
		s.metrics.duration.WithLabelValues(name).Observe(elapsed.Seconds())

		s.logger.WithFields(log.Fields{
			"requestID": requestID,
			"method":    r.Method,
			"uri":       r.RequestURI,
			"route":     name,
			"status":    rec.status,
			"duration":  elapsed,
		}).Log(level, "REST API call complete.")
	})
}

// withEmitter attaches a publisher carrying the request origin and ID so
// every event caused by the request shares them.
func (s *Server) withEmitter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID, _ := r.Context().Value(requestIDKey).(string)
		pub := event.NewPublisher(s.deps.Bus).
			WithSource(r.RemoteAddr, r.UserAgent()).
			WithCorrelation(requestID)
		next.ServeHTTP(w, r.WithContext(events.WithEmitter(r.Context(), pub)))
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="gatekeep"`)
			s.writeError(w, r, auth.ErrInvalidToken)
			return
		}
		sess, err := s.deps.Auth.Authenticate(r.Context(), token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="gatekeep", error="invalid_token"`)
			s.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func sessionFrom(r *http.Request) auth.Session {
	sess, _ := r.Context().Value(sessionKey).(auth.Session)
	return sess
}

func tokenFrom(r *http.Request) string {
	tok, _ := r.Context().Value(tokenKey).(string)
	return tok
}

// rateLimiterMiddleware rejects requests beyond r per second with 429.
// Sustained rejections are logged at most once per logInterval.
func rateLimiterMiddleware(r rate.Limit, b int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(r, b)
	logSometimes := rate.Sometimes{First: 1, Interval: logInterval}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			res := limiter.Reserve()
			ok, delay := res.OK(), res.Delay()
			if !ok || delay > 0 {
				res.Cancel()
				logSometimes.Do(func() {
					log.WithField("path", req.URL.Path).Warn("Too many requests.")
				})
				if ok {
					w.Header().Add("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				}
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
