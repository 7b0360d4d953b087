// Package api provides the admin HTTP server for Streako.
//
// It exposes read-only endpoints for health checking, inspecting a user's
// habits, listing the registered reminder jobs, and Prometheus scrapes.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/streako/streako/internal/metrics"
	"github.com/streako/streako/internal/scheduler"
	"github.com/streako/streako/internal/store"
)

// DefaultAddr is the default listen address for the admin server.
const DefaultAddr = ":8080"

// Opts holds configuration options for the admin server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the admin server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server serves the admin API.
type Server struct {
	srv   *http.Server
	store store.Store
	sched *scheduler.ReminderScheduler
}

// NewServer builds the admin server and its routes.
func NewServer(st store.Store, sched *scheduler.ReminderScheduler, gatherer prometheus.Gatherer, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{store: st, sched: sched}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/v1/habits", s.handleHabits)
	r.Get("/v1/jobs", s.handleJobs)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))

	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		slog.Info("Admin API listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Admin API server failed", "error", err)
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHabits returns all habits for the user given by the user_id query
// parameter.
func (s *Server) handleHabits(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}
	habits, err := s.store.GetHabits(userID)
	if err != nil {
		slog.Error("Admin API failed to list habits", "userID", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list habits"})
		return
	}
	writeJSON(w, http.StatusOK, habits)
}

// handleJobs returns the identifiers of all registered reminder jobs.
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sched.JobIDs())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Admin API failed to encode response", "error", err)
	}
}
