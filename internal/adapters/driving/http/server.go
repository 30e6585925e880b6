package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/llmserver/internal/core/ports/driving"
)

// HealthChecker reports whether a backend is usable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Pinger reports whether the document lock backend is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	docService     driving.DocumentService
	searchService  driving.SearchService
	contextService driving.ContextService
	chatService    driving.ChatService

	// Infrastructure
	index HealthChecker // vector index readiness
	lock  Pinger
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	Version      string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         8080,
		Version:      "dev",
		CORSOrigins:  []string{"*"},
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
}

// Services groups the driving ports served over HTTP
type Services struct {
	Documents driving.DocumentService
	Search    driving.SearchService
	Context   driving.ContextService
	Chat      driving.ChatService
	Index     HealthChecker
	Lock      Pinger
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, svc Services, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 120 * time.Second
	}

	s := &Server{
		router:         http.NewServeMux(),
		version:        cfg.Version,
		logger:         logger,
		docService:     svc.Documents,
		searchService:  svc.Search,
		contextService: svc.Context,
		chatService:    svc.Chat,
		index:          svc.Index,
		lock:           svc.Lock,
	}

	s.setupRoutes()

	// Outermost first: recovery sees panics from logging and handlers
	var handler http.Handler = s.router
	handler = NewCORSMiddleware(cfg.CORSOrigins).Handler(handler)
	handler = NewLoggingMiddleware(logger).Handler(handler)
	handler = NewRecoveryMiddleware(logger).Handler(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwagger)

	// Document indexing
	s.router.HandleFunc("POST /api/addDocumentPinecone", s.handleAddDocument)
	s.router.HandleFunc("POST /api/deleteDocumentPinecone", s.handleDeleteDocument)

	// Retrieval
	s.router.HandleFunc("POST /api/gptSearch", s.handleSearch)
	s.router.HandleFunc("POST /api/gptContext", s.handleContext)

	// Chat
	s.router.HandleFunc("POST /api/llm", s.handleLLM)
	s.router.HandleFunc("GET /api/providers", s.handleListProviders)
}

// Handler returns the fully wrapped handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr, "version", s.version)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
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
