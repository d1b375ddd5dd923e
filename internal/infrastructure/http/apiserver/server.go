// Package apiserver provides the JSON API HTTP server
package apiserver

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/tablewise/server/internal/infrastructure/config"
	"github.com/tablewise/server/internal/infrastructure/http/handlers"
	"github.com/tablewise/server/internal/infrastructure/http/middleware"
	"github.com/tablewise/server/internal/infrastructure/http/validation"
	"github.com/tablewise/server/internal/infrastructure/monitoring"
	"github.com/tablewise/server/pkg/errors"
	"github.com/tablewise/server/pkg/healthcheck"
)

const (
	compressionLevel = 5

	livenessPath  = "/live"
	readinessPath = "/ready"
)

// Handlers groups the route handlers the server mounts
type Handlers struct {
	Recipes  *handlers.RecipeHandlers
	Imports  *handlers.ImportHandlers
	Planner  *handlers.PlannerHandlers
	UserMeta *handlers.UserMetaHandlers
}

// Server is the JSON API HTTP server
type Server struct {
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
	router    *chi.Mux
	handlers  Handlers
	health    *healthcheck.HealthCheck
	metrics   *monitoring.Metrics
	limiter   *middleware.RateLimiter
	validator *validation.Validator
	openAPI   *OpenAPIHandler
	tracing   bool
}

// Option configures a Server
type Option func(*Server)

// WithRateLimiter limits /api requests per client
func WithRateLimiter(l *middleware.RateLimiter) Option {
	return func(s *Server) { s.limiter = l }
}

// WithTracing wraps the router in otelhttp instrumentation
func WithTracing(enabled bool) Option {
	return func(s *Server) { s.tracing = enabled }
}

// NewServer creates a new API server instance
func NewServer(
	cfg *config.Config,
	log *zap.Logger,
	h Handlers,
	health *healthcheck.HealthCheck,
	metrics *monitoring.Metrics,
	validator *validation.Validator,
	opts ...Option,
) *Server {
	s := &Server{
		config:    cfg,
		logger:    log.Named("http"),
		handlers:  h,
		health:    health,
		metrics:   metrics,
		validator: validator,
		openAPI:   NewOpenAPIHandler(log),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = s.setupRoutes()

	var handler http.Handler = s.router
	if s.tracing {
		handler = otelhttp.NewHandler(s.router, cfg.App.Name,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}

	s.server = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.Port)),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupRoutes configures the probes, metrics and the /api tree
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()
	mon := s.config.Monitoring

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger, mon.HealthCheckPath, livenessPath, readinessPath, mon.MetricsPath))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Security())
	if s.config.Server.EnableCORS {
		r.Use(middleware.CORS(s.config.Server.AllowedOrigins))
	}
	r.Use(middleware.Metrics(s.metrics))
	if s.config.Server.EnableCompression {
		r.Use(newCompressor().Handler)
	}

	// Probes
	r.Get(mon.HealthCheckPath, s.health.Handler())
	r.Get(livenessPath, s.health.LivenessHandler())
	r.Get(readinessPath, s.health.ReadinessHandler())
	if mon.EnableMetrics {
		r.Handle(mon.MetricsPath, s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(s.requestTimeout()))
		r.Use(middleware.JSONOnly())
		if s.limiter != nil {
			r.Use(s.limiter.Handler)
		}
		r.Use(middleware.DeviceID(s.validator))

		r.Get("/openapi.yaml", s.openAPI.ServeOpenAPISpec)

		s.handlers.Imports.Routes(r)
		r.Route("/recipes", func(r chi.Router) {
			s.handlers.Recipes.Routes(r)
			s.handlers.UserMeta.Routes(r)
		})
		r.Route("/planner", s.handlers.Planner.Routes)
		r.Route("/grocery-list", s.handlers.Planner.GroceryRoutes)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, errors.NewAppError(errors.CodeNotFound, "Route not found", r.URL.Path), http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, errors.NewAppError(errors.CodeBadRequest, "Method not allowed", r.Method), http.StatusMethodNotAllowed)
	})

	return r
}

// requestTimeout leaves room for a transcription followed by structuring
func (s *Server) requestTimeout() time.Duration {
	timeout := s.config.Server.WriteTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return timeout
}

// newCompressor compresses JSON and YAML responses with gzip, deflate and brotli
func newCompressor() *chimiddleware.Compressor {
	c := chimiddleware.NewCompressor(compressionLevel, "application/json", "application/yaml", "text/plain")
	c.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	return c
}

// Router exposes the route tree, mainly for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Server returns the underlying HTTP server instance
func (s *Server) Server() *http.Server {
	return s.server
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.server.Shutdown(ctx)
}
