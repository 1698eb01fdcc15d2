// Package api provides the HTTP server and routing (spec.md §6,
// SPEC_FULL §5.J), grounded on the teacher's internal/api shape: a
// Server wrapping a chi.Router, ServerOption functional options, a
// logging middleware, and a Swagger/OpenAPI static-asset handler.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/thewisecoder/dbrief/internal/api/handlers"
	"github.com/thewisecoder/dbrief/internal/config"
	"github.com/thewisecoder/dbrief/internal/metrics"
	"github.com/thewisecoder/dbrief/internal/migrator"
	"github.com/thewisecoder/dbrief/internal/session"
)

// Server represents the HTTP server.
type Server struct {
	config   *config.Config
	sessions *session.Registry
	router   chi.Router
	server   *http.Server
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// ServerOption is a function that configures the server.
type ServerOption func(*Server)

// WithMetrics overrides the server's metrics instance (default: a fresh
// metrics.New()), useful for tests that want a private registry.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Config, sessions *session.Registry, orch *migrator.Orchestrator, version string, logger *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		config:   cfg,
		sessions: sessions,
		logger:   logger,
		metrics:  metrics.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRouter(orch, version)
	return s
}

// Metrics returns the metrics instance for recording custom metrics.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// setupRouter configures the HTTP router (spec §6's route table).
func (s *Server) setupRouter(orch *migrator.Orchestrator, version string) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(s.metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(clientIDMiddleware)

	h := handlers.New(s.sessions, orch, version, s.logger)

	r.Get("/version", h.Version)
	r.Get("/rdbms/{engine}", h.GetRDBMSConfig)
	r.Post("/rdbms", h.SetRDBMSConfig)
	r.Get("/s3/{engine}", h.GetS3Config)
	r.Post("/s3", h.SetS3Config)
	r.Get("/migration:metrics", h.GetMigrationMetrics)
	r.Patch("/migration:metrics", h.PatchMigrationMetrics)
	r.Post("/migration:verify", h.VerifyMigration)
	r.Post("/migrate", h.StartMigration)
	r.Delete("/migrate", h.AbortMigration)
	r.Get("/logging", h.Logging)

	if s.config == nil || s.config.Server.DocsEnabled {
		r.Get("/swagger", handleSwagger)
	}

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.metrics.Handler().ServeHTTP(w, r)
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", r.RemoteAddr),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := s.config.Address()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeout) * time.Second,
	}

	s.logger.Info("starting server", slog.String("address", addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the HTTP router for testing.
func (s *Server) Router() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Address returns the server address.
func (s *Server) Address() string {
	return fmt.Sprintf("http://%s", s.config.Address())
}
