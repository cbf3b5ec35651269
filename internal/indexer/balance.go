package indexer

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/raouf2ouf/kandled/internal/chain"
)

// Balances holds the outcome of one reserve read per side. Each side
// succeeds or fails on its own; a failed bid read does not invalidate a
// successful ask read.
type Balances struct {
	Bid    *big.Int
	Ask    *big.Int
	BidErr error
	AskErr error
}

// Partial reports whether at least one side failed.
func (b Balances) Partial() bool { return b.BidErr != nil || b.AskErr != nil }

// Err returns the first per-side error, or nil when both sides succeeded.
func (b Balances) Err() error {
	if b.BidErr != nil {
		return b.BidErr
	}
	return b.AskErr
}

// BalanceTracker reads reserveBalance for both sides of an instance.
type BalanceTracker struct {
	client chain.Client
	logger *slog.Logger
}

// NewBalanceTracker creates a tracker on the given chain client.
func NewBalanceTracker(client chain.Client, logger *slog.Logger) *BalanceTracker {
	return &BalanceTracker{
		client: client,
		logger: logger.With(slog.String("component", "balance_tracker")),
	}
}

// Fetch runs both reserve reads concurrently. Goroutines always return nil
// to the group so one side's RPC failure never cancels the other read; the
// per-side errors are carried in the result instead.
func (t *BalanceTracker) Fetch(ctx context.Context, kandel common.Address) Balances {
	var out Balances

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Bid, out.BidErr = chain.ReserveBalance(gctx, t.client, kandel, chain.ReserveBid)
		return nil
	})
	g.Go(func() error {
		out.Ask, out.AskErr = chain.ReserveBalance(gctx, t.client, kandel, chain.ReserveAsk)
		return nil
	})
	_ = g.Wait()

	if out.Partial() {
		t.logger.Warn("partial reserve read",
			slog.String("kandel", kandel.Hex()),
			slog.Any("bid_err", out.BidErr),
			slog.Any("ask_err", out.AskErr))
	}
	return out
}
