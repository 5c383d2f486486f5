// Package server exposes the agent's HTTP surface: health probes, version,
// gate status, and a Prometheus metrics proxy.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/postpilot/postpilot/internal/config"
	apperrors "github.com/postpilot/postpilot/internal/errors"
	"github.com/postpilot/postpilot/internal/guard"
	"github.com/postpilot/postpilot/internal/observability"
)

// Server is the HTTP server for the agent's operational endpoints.
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    config.ServerConfig
	health *HealthManager
	gates  []*guard.Gate
}

// New creates the HTTP server. Gates are exposed read-only on /guards.
func New(cfg config.ServerConfig, health *HealthManager, gates []*guard.Gate) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(requestMetrics)
	r.Use(recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithEnvelope(w, req, apperrors.NewNotFoundError("the requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithEnvelope(w, req, apperrors.NewInvalidInputError("method not allowed for this resource"))
	})

	s := &Server{
		router: r,
		cfg:    cfg,
		health: health,
		gates:  gates,
	}

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.health.AggregateHandler)
	s.router.Get("/health/live", s.health.LivenessHandler)
	s.router.Get("/health/ready", s.health.ReadinessHandler)

	s.router.Get("/version", VersionHandler)
	s.router.Get("/metrics", MetricsHandler)
	s.router.Get("/guards", s.guardsHandler)
}

// Start blocks serving HTTP until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	if observability.AgentLogger != nil {
		observability.AgentLogger.Info("Starting HTTP server",
			zap.String("addr", addr))
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if observability.AgentLogger != nil {
		observability.AgentLogger.Info("Shutting down HTTP server")
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}
