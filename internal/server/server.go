// Package server exposes the redrive admin API: record inspection and
// enqueueing, backlog statistics, health, and the metrics endpoint.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/me/redrive/internal/scheduler"
	"github.com/me/redrive/internal/store"
)

// TriggerSource reports the schedule state of the configured triggers. The
// scheduler implements it; tests substitute a stub.
type TriggerSource interface {
	Triggers() []scheduler.TriggerState
}

// Server is the redrive admin API server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	store     store.Store
	triggers  TriggerSource // optional; nil when the daemon runs without a scheduler
	metrics   http.Handler  // optional; mounted at /metrics when set
	startTime time.Time
	version   string
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithTriggerSource wires the scheduler's trigger states into /stats.
func WithTriggerSource(ts TriggerSource) Option {
	return func(s *Server) {
		s.triggers = ts
	}
}

// WithMetricsHandler mounts the given handler at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// New creates a Server with all routes registered.
func New(st store.Store, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		store:     st,
		startTime: time.Now(),
		version:   "0.1.0",
	}
	for _, opt := range opts {
		opt(s)
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)

		r.Route("/records", func(r chi.Router) {
			r.Get("/", s.handleListRecords)
			r.Post("/", s.handleCreateRecord)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRecord)
				r.Post("/retry", s.handleRetryRecord)
			})
		})
	})
}
