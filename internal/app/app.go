// Package app wires configuration into concrete dependencies and runs the
// configured mode: the chain indexer, the HTTP/WebSocket API server, or both.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raouf2ouf/kandled/internal/config"
)

// App is the top level application object. It owns the wired dependencies
// for the lifetime of Run and closes them in reverse order on Close.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App from a validated configuration.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires dependencies and blocks until the context is cancelled or a
// fatal error occurs in one of the mode's goroutines.
func (a *App) Run(ctx context.Context) error {
	deps, cleanup, err := a.wire(ctx)
	if err != nil {
		return fmt.Errorf("app: wire: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	a.logger.InfoContext(ctx, "application starting", slog.String("mode", a.cfg.Mode))

	switch a.cfg.Mode {
	case config.ModeIndexer:
		return a.runIndexer(ctx, deps)
	case config.ModeServer:
		return a.runServer(ctx, deps)
	case config.ModeFull:
		return a.runFull(ctx, deps)
	default:
		return fmt.Errorf("app: unknown mode %q", a.cfg.Mode)
	}
}

// Close releases all wired resources in reverse registration order. It is
// safe to call after Run returns, including when Run failed.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	a.logger.Info("application closed")
}
