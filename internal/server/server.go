// Package server exposes the HTTP + WebSocket API: registry reads,
// distribution previews, book ingest, and the live update stream.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/raouf2ouf/kandled/internal/domain"
	"github.com/raouf2ouf/kandled/internal/server/handler"
	"github.com/raouf2ouf/kandled/internal/server/middleware"
	"github.com/raouf2ouf/kandled/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit caps requests per client IP per RateWindow when a limiter
	// is provided. Zero disables limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health *handler.HealthHandler
	Kandel *handler.KandelHandler
	Book   *handler.BookHandler
}

// Server is the headless HTTP + WebSocket API server for kandled.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux and
// the middleware chain (rate limit, auth, logging, CORS) wired up. limiter
// may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required behind the same chain as everything
	// else; the auth middleware runs before routing regardless).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Registry endpoints.
	mux.HandleFunc("GET /api/kandels", handlers.Kandel.ListKandels)
	mux.HandleFunc("GET /api/kandels/{address}", handlers.Kandel.GetKandel)
	mux.HandleFunc("POST /api/kandels/{address}/refresh", handlers.Kandel.RefreshReserves)

	// Distribution engine endpoints.
	mux.HandleFunc("POST /api/distribution/validate", handlers.Kandel.ValidateParams)
	mux.HandleFunc("POST /api/distribution/preview", handlers.Kandel.PreviewDistribution)
	mux.HandleFunc("GET /api/provision", handlers.Kandel.EstimateProvision)
	mux.HandleFunc("GET /api/sow", handlers.Kandel.SowCalldata)

	// Order book endpoints.
	mux.HandleFunc("POST /api/book/{market}", handlers.Book.IngestSnapshot)
	mux.HandleFunc("GET /api/book/{market}/depth", handlers.Book.GetDepth)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Second
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
