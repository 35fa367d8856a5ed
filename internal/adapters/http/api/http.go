// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	service "github.com/okian/varkiosk/internal/app"
	"github.com/okian/varkiosk/internal/adapters/mq/worker"
	"github.com/okian/varkiosk/internal/domain/session"
	"github.com/okian/varkiosk/internal/domain/types"
	"github.com/okian/varkiosk/pkg/logger"
)

const (
	defaultRequestTimeout = 30 * time.Second
	maxBodyBytes          = 1 << 16
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	SessionDependencies
	LeaderboardDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the kiosk API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	sessionHandler     *SessionHandler
	leaderboardHandler *LeaderboardHandler

	timeout time.Duration
	log     logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithRequestTimeout bounds each request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		sessionHandler:     NewSessionHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		timeout:            defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("api")
	}
	return s
}

// Routes builds the chi router with middleware and every API route.
func (s *Server) Routes(ctx context.Context) chi.Router {
	r := chi.NewRouter()
	s.Register(ctx, r)
	return r
}

// Register attaches middleware and all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Get("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))

	sh := s.sessionHandler
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", MetricsMiddleware(sh.HandleCreate, "sessions"))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", MetricsMiddleware(sh.HandleGet, "session"))
			r.Delete("/", MetricsMiddleware(sh.HandleClose, "session"))
			r.Post("/start", MetricsMiddleware(sh.HandleStart, "start"))
			r.Post("/click", MetricsMiddleware(sh.HandleClick, "click"))
			r.Put("/initials", MetricsMiddleware(sh.HandleInitials, "initials"))
			r.Post("/submit", MetricsMiddleware(sh.HandleSubmit, "submit"))
			r.Post("/retry", MetricsMiddleware(sh.HandleRetry, "retry"))
			r.Post("/reset", MetricsMiddleware(sh.HandleReset, "reset"))
		})
	})
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// sessionResponse is a session view plus transition outcome and share link.
type sessionResponse struct {
	session.View
	Applied  *bool  `json:"applied,omitempty"`
	ShareURL string `json:"share_url,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{
		Code:      code,
		Message:   msg,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// writeServiceError maps service and domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrTooManySessions):
		writeError(w, r, http.StatusTooManyRequests, "too_many_sessions", Wrap(op, err))
	case errors.Is(err, worker.ErrBackpressure):
		writeError(w, r, http.StatusServiceUnavailable, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, worker.ErrStopped):
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	case errors.Is(err, session.ErrPersistence):
		writeError(w, r, http.StatusInternalServerError, "persistence_error", Wrap(op, err))
	default:
		writeError(w, r, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
