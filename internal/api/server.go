// Package api serves the gateway over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	handlerapi "github.com/newthinker/nurexia/internal/api/handler/api"
	"github.com/newthinker/nurexia/internal/api/middleware"
	"github.com/newthinker/nurexia/internal/app"
	"github.com/newthinker/nurexia/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the gateway HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	APIKey      string
	MetricsPath string // empty disables the metrics endpoint
}

// Dependencies holds the components the routes are served from.
type Dependencies struct {
	App     *app.App
	Metrics *metrics.Registry
}

// NewServer creates a new HTTP server.
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.App == nil {
		return nil, errors.New("server requires an app")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = deps.App.Metrics()
	}

	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler: chain(mux,
				metrics.LoggingMiddleware(logger),
				metrics.HTTPMiddleware(deps.Metrics),
			),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			// No WriteTimeout: streamed replies last as long as generation does.
			IdleTimeout: 60 * time.Second,
		},
		logger: logger,
		mux:    mux,
	}
	s.setupRoutes(cfg, deps)
	return s, nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	chat := handlerapi.NewChatHandler(deps.App, s.logger)
	providers := handlerapi.NewProvidersHandler(deps.App)
	auth := middleware.APIKeyAuth(cfg.APIKey)

	s.mux.Handle("POST /v1/chat", auth(http.HandlerFunc(chat.Chat)))
	s.mux.Handle("GET /v1/providers", auth(http.HandlerFunc(providers.List)))
	s.mux.Handle("POST /v1/providers/{name}/test", auth(http.HandlerFunc(providers.Test)))

	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	if cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// chain applies middleware so the first one listed runs outermost.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
