package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/raouf2ouf/kandled/internal/domain"
	"github.com/raouf2ouf/kandled/internal/indexer"
	"github.com/raouf2ouf/kandled/internal/kandel"
	"github.com/raouf2ouf/kandled/internal/server"
	"github.com/raouf2ouf/kandled/internal/server/handler"
	"github.com/raouf2ouf/kandled/internal/server/ws"
)

// runIndexer runs the chain indexer alone. Discoveries are still published
// on the signal bus so a separate server process can pick them up.
func (a *App) runIndexer(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)
	a.startIndexer(ctx, g, deps)
	return g.Wait()
}

// runServer runs the HTTP/WebSocket API alone, answering from the in-memory
// registry and whatever the signal bus delivers.
func (a *App) runServer(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, nil)
	return g.Wait()
}

// runFull runs the indexer and the API server in one process, sharing the
// registry so HTTP reads see discoveries immediately.
func (a *App) runFull(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)
	ix := a.startIndexer(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps, ix)
	return g.Wait()
}

// startIndexer builds the indexer from the configuration and adds its run
// loop to the errgroup.
func (a *App) startIndexer(ctx context.Context, g *errgroup.Group, deps *Dependencies) *indexer.Indexer {
	ixDeps := indexer.Deps{
		Client:      deps.ChainClient,
		Registry:    deps.Registry,
		Balances:    deps.Balances,
		Checkpoints: deps.Checkpoints,
		Bus:         deps.SignalBus,
		Notifier:    deps.Notifier,
		Logger:      a.logger,
	}
	// Assign through the interface only when the concrete pointer is live,
	// otherwise the nil check inside the indexer never fires.
	if deps.Archiver != nil {
		ixDeps.Archiver = deps.Archiver
	}

	ix := indexer.New(indexer.Config{
		Seeder:       common.HexToAddress(a.cfg.Contracts.Seeder),
		Market:       a.market(),
		StartBlock:   a.cfg.Indexer.StartBlock,
		RetryBackoff: a.cfg.Indexer.RetryBackoff.Duration,
		MaxBackoff:   a.cfg.Indexer.MaxBackoff.Duration,
	}, ixDeps)

	g.Go(func() error {
		return ix.Run(ctx)
	})
	return ix
}

// startHTTPServer builds the REST handlers and WebSocket hub and adds the
// server's serve and shutdown goroutines to the errgroup. ix is nil in
// server mode.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, ix *indexer.Indexer) {
	market := a.market()
	estimator := kandel.NewEstimator(
		big.NewInt(a.cfg.Kandel.GasReq),
		new(big.Int).Mul(big.NewInt(a.cfg.Kandel.GasPriceGwei), big.NewInt(1e9)),
	)
	grid := kandel.NewGrid(market, estimator)

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(ix, deps.Registry, a.logger),
		Kandel: handler.NewKandelHandler(deps.Registry, ix, grid, estimator, market, a.logger),
		Book:   handler.NewBookHandler(deps.BookCache, deps.SignalBus, deps.Registry, a.logger),
	}

	stateFn := func() string { return "detached" }
	if ix != nil {
		stateFn = func() string { return ix.State().String() }
	}
	hub := ws.NewHub(deps.SignalBus, deps.Registry, stateFn, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// market builds the watched pair description from the contracts section.
func (a *App) market() domain.Market {
	return domain.Market{
		BaseToken:     a.cfg.Contracts.BaseToken,
		QuoteToken:    a.cfg.Contracts.QuoteToken,
		BaseDecimals:  a.cfg.Contracts.BaseDecimals,
		QuoteDecimals: a.cfg.Contracts.QuoteDecimals,
		TickSpacing:   a.cfg.Contracts.TickSpacing,
	}
}
