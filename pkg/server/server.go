// Package server exposes a cache over HTTP.
//
//	GET    /v1/cache/{key}           value bytes, 404 when absent
//	PUT    /v1/cache/{key}           body is the value; ttl, sliding or at query parameter
//	DELETE /v1/cache/{key}           204 whether or not the key existed
//	POST   /v1/cache/{key}/refresh   extends a sliding entry by the cache window
//	POST   /v1/cache/purge           deletes expired entries, reports how many
//	GET    /healthz, /health/live, /health/ready
//
// Values sent or requested as text/plain go through the string operations
// and must be valid UTF-8. WithAuth guards the /v1 routes; health and
// metrics stay open.
package server

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/Combine-Capital/pgcache/pkg/auth"
	"github.com/Combine-Capital/pgcache/pkg/cache"
	"github.com/Combine-Capital/pgcache/pkg/errors"
	"github.com/Combine-Capital/pgcache/pkg/health"
	"github.com/Combine-Capital/pgcache/pkg/logging"
	"github.com/Combine-Capital/pgcache/pkg/metrics"
	"github.com/Combine-Capital/pgcache/pkg/tracing"
)

// DefaultMaxValueBytes bounds request bodies when no limit is configured.
const DefaultMaxValueBytes = 8 << 20

// Server routes HTTP requests to a cache.
type Server struct {
	cache         cache.Cache
	health        *health.Health
	logger        *logging.Logger
	maxValueBytes int64
	serveMetrics  bool
	authenticate  func(http.Handler) http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithHealth uses h for the health endpoints instead of a checker set that
// only probes the cache.
func WithHealth(h *health.Health) Option {
	return func(s *Server) {
		if h != nil {
			s.health = h
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxValueBytes caps the size of PUT bodies.
func WithMaxValueBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxValueBytes = n
		}
	}
}

// WithAuth wraps the cache routes in mw, typically auth.Authenticator.Middleware.
func WithAuth(mw func(http.Handler) http.Handler) Option {
	return func(s *Server) {
		s.authenticate = mw
	}
}

// WithMetricsEndpoint also serves the Prometheus registry on GET /metrics.
func WithMetricsEndpoint() Option {
	return func(s *Server) {
		s.serveMetrics = true
	}
}

// New returns a server for c.
func New(c cache.Cache, opts ...Option) *Server {
	s := &Server{
		cache:         c,
		logger:        logging.NewNop(),
		maxValueBytes: DefaultMaxValueBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.health == nil {
		s.health = health.New()
		s.health.Register("store", health.CheckerFunc(c.Check))
	}
	s.logger = s.logger.WithComponent("http")
	return s
}

// Handler returns the routed handler wrapped in recovery, request logging,
// tracing and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /v1/cache/{key}", s.protect(s.handleGet))
	mux.Handle("PUT /v1/cache/{key}", s.protect(s.handleSet))
	mux.Handle("DELETE /v1/cache/{key}", s.protect(s.handleRemove))
	mux.Handle("POST /v1/cache/{key}/refresh", s.protect(s.handleRefresh))
	mux.Handle("POST /v1/cache/purge", s.protect(s.handlePurge))
	mux.Handle("GET /healthz", s.health.ReadinessHandler())
	mux.Handle("GET /health/live", s.health.LivenessHandler())
	mux.Handle("GET /health/ready", s.health.ReadinessHandler())
	if s.serveMetrics {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	var h http.Handler = metrics.HTTPMiddleware(mux)
	h = tracing.HTTPMiddleware(h)
	h = logging.HTTPMiddleware(s.logger)(h)
	h = errors.RecoveryMiddleware(s.recovered)(h)
	return h
}

// recovered logs a handler panic with its stack before the client gets a
// bare 500.
func (s *Server) recovered(r *http.Request, p interface{}) error {
	err := errors.DefaultRecoveryFunc(r, p)
	s.logger.Error().
		Err(err).
		Str(logging.Method, r.Method).
		Str(logging.Path, r.URL.Path).
		Bytes("stack", debug.Stack()).
		Msg("handler panicked")
	return err
}

func (s *Server) protect(h http.HandlerFunc) http.Handler {
	if s.authenticate == nil {
		return h
	}
	return s.authenticate(h)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	if wantsText(r.Header.Get("Accept")) {
		value, ok, err := s.cache.GetString(r.Context(), key)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if !ok {
			s.fail(w, r, errors.NewNotFound("cache entry", key))
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, value)
		return
	}

	value, ok, err := s.cache.Get(r.Context(), key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !ok {
		s.fail(w, r, errors.NewNotFound("cache entry", key))
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(value)
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	q := r.URL.Query()

	exp, err := cache.ParseExpiration(q.Get("ttl"), q.Get("sliding"), q.Get("at"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxValueBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			http.Error(w, "value exceeds the size limit", http.StatusRequestEntityTooLarge)
			return
		}
		s.fail(w, r, errors.NewInvalidInputWithCause("value", "unreadable request body", err))
		return
	}

	if wantsText(r.Header.Get("Content-Type")) {
		err = s.cache.SetString(r.Context(), key, string(body), exp)
	} else {
		err = s.cache.Set(r.Context(), key, body, exp)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Remove(r.Context(), r.PathValue("key")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Refresh(r.Context(), r.PathValue("key")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	n, err := s.cache.PurgeExpired(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int64{"purged": n})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		event := logging.FromContext(r.Context(), s.logger).Error().
			Err(err).
			Str(logging.Path, r.URL.Path)
		if p, ok := auth.FromContext(r.Context()); ok {
			event = event.Str(logging.Principal, p.Subject)
		}
		event.Msg("cache request failed")
	}
	errors.WriteHTTPError(w, err)
}

func wantsText(header string) bool {
	for _, part := range strings.Split(header, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mediaType == "text/plain" {
			return true
		}
	}
	return false
}
