package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gss-opera-matcher/internal/config"
	"github.com/gss-opera-matcher/internal/debug"
	"github.com/gss-opera-matcher/internal/embeddings"
	"github.com/gss-opera-matcher/internal/web/handlers"
	"github.com/gss-opera-matcher/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config     *Config
	deps       handlers.Deps
	httpServer *http.Server
	router     *mux.Router
	logger     *zap.Logger
}

// NewServer creates a new web server instance. store may be nil, which
// disables persistence.
func NewServer(cfg *Config, store handlers.RunStore, caps config.Capabilities, semantic *embeddings.Handle) *Server {
	handlerConfig := &handlers.Config{MaxBodyBytes: cfg.Server.MaxBodyBytes}
	handlerConfig.Features.PersistEnabled = cfg.Features.PersistEnabled

	deps := handlers.Deps{
		Config:       handlerConfig,
		Capabilities: caps,
		Semantic:     semantic,
	}
	if store != nil && cfg.Features.PersistEnabled {
		deps.Store = store
	}

	server := &Server{
		config: cfg,
		deps:   deps,
		logger: debug.Logger().Named("web"),
	}
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return server
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	apiHandler := &handlers.APIHandler{Deps: s.deps}
	matchHandler := &handlers.MatchHandler{Deps: s.deps}
	runsHandler := &handlers.RunsHandler{Deps: s.deps}
	realtimeHandler := &handlers.RealtimeHandler{MatchHandler: handlers.MatchHandler{Deps: s.deps}}

	// API routes
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", apiHandler.Health).Methods("GET")
	api.HandleFunc("/algorithms", apiHandler.ListAlgorithms).Methods("GET")
	api.HandleFunc("/match", matchHandler.RunMatch).Methods("POST", "OPTIONS")
	if s.config.Features.StreamEnabled {
		api.HandleFunc("/match/stream", realtimeHandler.StreamMatch).Methods("POST", "OPTIONS")
	}

	// Stored run endpoints
	api.HandleFunc("/runs/{id}", runsHandler.GetRun).Methods("GET")
	api.HandleFunc("/runs/{id}/results", runsHandler.GetResults).Methods("GET")

	if s.config.Features.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	// Apply middleware
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RequestLogging())
}

// Start serves until ctx is cancelled or the process receives SIGINT or
// SIGTERM, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}
