package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-corpus/internal/metrics"
	"github.com/custodia-labs/sercha-corpus/internal/runtime"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	version    string
	logger     *slog.Logger

	maxUploadBytes int64

	// Services
	authService  driving.AuthService
	userService  driving.UserService
	docService   driving.DocumentService
	queryService driving.QueryService

	// Infrastructure
	runtime *runtime.Services
	metrics *metrics.Metrics
	checks  map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	MaxUploadBytes int64
	CORSOrigins    []string
	Logger         *slog.Logger
}

// Dependencies are the services and probes the server routes to
type Dependencies struct {
	Auth      driving.AuthService
	Users     driving.UserService
	Documents driving.DocumentService
	Query     driving.QueryService

	Runtime *runtime.Services // Optional: AI capability probe for /ready
	Metrics *metrics.Metrics  // Optional: /metrics and request counters
	Checks  map[string]Pinger // Named readiness probes (database, redis, queue)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		MaxUploadBytes: 20 << 20,
		CORSOrigins:    []string{"*"},
	}
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultConfig().MaxUploadBytes
	}

	s := &Server{
		router:         http.NewServeMux(),
		version:        cfg.Version,
		logger:         logger.With("component", "http"),
		maxUploadBytes: maxUpload,
		authService:    deps.Auth,
		userService:    deps.Users,
		docService:     deps.Documents,
		queryService:   deps.Query,
		runtime:        deps.Runtime,
		metrics:        deps.Metrics,
		checks:         deps.Checks,
	}

	s.setupRoutes()

	// Outermost first: panics are logged and counted like any other response
	s.handler = NewLoggingMiddleware(s.logger, s.metrics).Handler(
		NewRecoveryMiddleware(s.logger).Handler(
			NewCORSMiddleware(cfg.CORSOrigins).Handler(s.router)))

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped request handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)
	authed := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(h)
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.Handle("GET /metrics", s.metrics.Handler())
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwagger)

	// Auth endpoints (public)
	s.router.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	s.router.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	s.router.HandleFunc("POST /api/v1/auth/refresh", s.handleRefresh)

	// Auth endpoints (authenticated)
	s.router.Handle("POST /api/v1/auth/logout", authed(s.handleLogout))
	s.router.Handle("POST /api/v1/auth/logout-all", authed(s.handleLogoutAll))
	s.router.Handle("GET /api/v1/auth/sessions", authed(s.handleListSessions))

	// User endpoints
	s.router.Handle("GET /api/v1/me", authed(s.handleGetMe))
	s.router.Handle("POST /api/v1/me/api-key", authed(s.handleRotateAPIKey))
	s.router.Handle("POST /api/v1/me/password", authed(s.handleChangePassword))

	// Document endpoints
	s.router.Handle("POST /api/v1/documents/text", authed(s.handleIngestText))
	s.router.Handle("POST /api/v1/documents/upload", authed(s.handleUpload))
	s.router.Handle("GET /api/v1/documents", authed(s.handleListDocuments))
	s.router.Handle("GET /api/v1/documents/events", authed(s.handleDocumentEvents))
	s.router.Handle("GET /api/v1/documents/{id}", authed(s.handleGetDocument))
	s.router.Handle("DELETE /api/v1/documents/{id}", authed(s.handleDeleteDocument))
	s.router.Handle("POST /api/v1/documents/{id}/retry", authed(s.handleRetryDocument))

	// Query endpoints
	s.router.Handle("POST /api/v1/query", authed(s.handleQuery))
	s.router.Handle("POST /api/v1/external/query",
		authMiddleware.RequireAPIKey(http.HandlerFunc(s.handleExternalQuery)))
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
