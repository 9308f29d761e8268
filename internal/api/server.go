// Package api serves the keventdir command's operational endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server routes /metrics and /healthz.
type Server struct {
	router   *chi.Mux
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	started  time.Time
}

// NewServer creates a server exposing the collectors of gatherer.
func NewServer(gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		gatherer: gatherer,
		logger:   logger,
		started:  time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}))
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := HealthResponse{
		Status: "healthy",
		Uptime: time.Since(s.started).Truncate(time.Second).String(),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to write health response", "error", err)
	}
}
