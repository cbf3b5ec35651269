package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	s3blob "github.com/raouf2ouf/kandled/internal/blob/s3"
	"github.com/raouf2ouf/kandled/internal/cache/redis"
	"github.com/raouf2ouf/kandled/internal/chain"
	"github.com/raouf2ouf/kandled/internal/config"
	"github.com/raouf2ouf/kandled/internal/domain"
	"github.com/raouf2ouf/kandled/internal/indexer"
	"github.com/raouf2ouf/kandled/internal/notify"
	"github.com/raouf2ouf/kandled/internal/store/postgres"
)

// Dependencies holds every wired collaborator. Optional subsystems are nil
// when disabled in the configuration; consumers degrade gracefully.
type Dependencies struct {
	ChainClient *chain.RPC
	Registry    *indexer.Registry
	Balances    *indexer.BalanceTracker
	Checkpoints domain.CheckpointStore
	SignalBus   domain.SignalBus
	BookCache   domain.BookCache
	RateLimiter domain.RateLimiter
	Archiver    *s3blob.EventArchiver
	Notifier    *notify.Notifier
}

// needsChain reports whether the given mode runs the indexer and therefore
// requires an RPC connection.
func needsChain(mode string) bool {
	return mode == config.ModeFull || mode == config.ModeIndexer
}

// wire constructs all dependencies for the configured mode. The returned
// cleanup function closes everything built so far and must be called even
// when wire returns an error-free result.
func (a *App) wire(ctx context.Context) (*Dependencies, func(), error) {
	deps := &Dependencies{
		Registry: indexer.NewRegistry(),
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	mode := strings.ToLower(a.cfg.Mode)

	// Chain RPC — indexer modes only. The server mode answers from the
	// in-memory registry and cache and never touches the chain.
	if needsChain(mode) {
		rpc, err := chain.Dial(ctx, a.cfg.Chain.RPCURL, a.cfg.Chain.CallTimeout.Duration)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: chain rpc: %w", err)
		}
		closers = append(closers, rpc.Close)
		deps.ChainClient = rpc
		deps.Balances = indexer.NewBalanceTracker(rpc, a.logger)
		a.logger.InfoContext(ctx, "chain RPC connected", slog.String("url", a.cfg.Chain.RPCURL))
	}

	// Postgres — checkpoint persistence. Without it the indexer restarts
	// every catch-up from the configured start block.
	if a.cfg.Postgres.Enabled {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      a.cfg.Postgres.DSN,
			Host:     a.cfg.Postgres.Host,
			Port:     a.cfg.Postgres.Port,
			Database: a.cfg.Postgres.Database,
			User:     a.cfg.Postgres.User,
			Password: a.cfg.Postgres.Password,
			SSLMode:  a.cfg.Postgres.SSLMode,
			MaxConns: a.cfg.Postgres.PoolMaxConns,
			MinConns: a.cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pg.Close)
		if a.cfg.Postgres.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.Checkpoints = postgres.NewCheckpointStore(pg)
		a.logger.InfoContext(ctx, "postgres connected")
	}

	// Redis — signal bus for WS fan-out, depth cache and the HTTP rate
	// limiter all share one client.
	if a.cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       a.cfg.Redis.Addr,
			Password:   a.cfg.Redis.Password,
			DB:         a.cfg.Redis.DB,
			PoolSize:   a.cfg.Redis.PoolSize,
			MaxRetries: a.cfg.Redis.MaxRetries,
			TLSEnabled: a.cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() {
			if err := rc.Close(); err != nil {
				a.logger.Warn("redis close", slog.String("error", err.Error()))
			}
		})
		deps.SignalBus = redis.NewSignalBus(rc)
		deps.BookCache = redis.NewBookCache(rc, a.cfg.Redis.DepthTTL.Duration)
		deps.RateLimiter = redis.NewRateLimiter(rc)
		a.logger.InfoContext(ctx, "redis connected", slog.String("addr", a.cfg.Redis.Addr))
	}

	// S3 — raw event archive written during catch-up.
	if a.cfg.S3.Enabled && needsChain(mode) {
		s3c, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       a.cfg.S3.Endpoint,
			Region:         a.cfg.S3.Region,
			Bucket:         a.cfg.S3.Bucket,
			AccessKey:      a.cfg.S3.AccessKey,
			SecretKey:      a.cfg.S3.SecretKey,
			UseSSL:         a.cfg.S3.UseSSL,
			ForcePathStyle: a.cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() {
			if err := s3c.Close(); err != nil {
				a.logger.Warn("s3 close", slog.String("error", err.Error()))
			}
		})
		hctx, hcancel := context.WithTimeout(ctx, 10*time.Second)
		err = s3c.Health(hctx)
		hcancel()
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3 health: %w", err)
		}
		deps.Archiver = s3blob.NewEventArchiver(s3blob.NewWriter(s3c), a.cfg.Indexer.ArchivePrefix, a.logger)
		a.logger.InfoContext(ctx, "s3 archive connected", slog.String("bucket", a.cfg.S3.Bucket))
	}

	// Notifications — any configured sender participates.
	var senders []notify.Sender
	if a.cfg.Notify.TelegramToken != "" && a.cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(a.cfg.Notify.TelegramToken, a.cfg.Notify.TelegramChatID))
	}
	if a.cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(a.cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.NewNotifier(senders, a.cfg.Notify.Events, a.logger)
		a.logger.InfoContext(ctx, "notifications enabled", slog.Int("senders", len(senders)))
	}

	return deps, cleanup, nil
}
