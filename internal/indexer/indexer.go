package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/raouf2ouf/kandled/internal/chain"
	"github.com/raouf2ouf/kandled/internal/domain"
	"github.com/raouf2ouf/kandled/internal/notify"
)

// State is the indexer lifecycle phase, readable concurrently with Run.
type State int32

const (
	StateIdle State = iota
	StateCatchingUp
	StateLive
	StateError
)

// String returns the lowercase phase name used in logs and the health API.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCatchingUp:
		return "catchingUp"
	case StateLive:
		return "live"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ChannelKandels is the signal-bus channel carrying newly discovered
// instances, and StreamKandels the durable stream the hub replays from.
const (
	ChannelKandels = "kandels"
	StreamKandels  = "kandel_events"
)

// Archiver persists a batch of raw deployment events, e.g. to blob storage.
type Archiver interface {
	ArchiveBatch(ctx context.Context, fromBlock, toBlock uint64, events []chain.NewKandelEvent) error
}

// Config carries the chain-facing settings of one indexer run.
type Config struct {
	// Seeder is the factory contract whose NewKandel logs are watched.
	Seeder common.Address
	// Market describes the token pair every discovered instance trades.
	Market domain.Market
	// StartBlock is where catch-up begins when no checkpoint exists.
	StartBlock uint64
	// RetryBackoff is the initial delay before restarting after a failure;
	// it doubles per consecutive failure up to MaxBackoff.
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
}

// Deps are the indexer's collaborators. Client and Registry are required;
// everything else degrades gracefully when nil.
type Deps struct {
	Client      chain.Client
	Registry    *Registry
	Balances    *BalanceTracker
	Checkpoints domain.CheckpointStore
	Bus         domain.SignalBus
	Notifier    *notify.Notifier
	Archiver    Archiver
	Logger      *slog.Logger
}

// Indexer reconciles the registry with the chain: a bounded historical
// catch-up from the last checkpoint, then a live log subscription. Losing
// the subscription drops back to catch-up, so duplicate deliveries around
// the boundary are expected and absorbed by the registry's idempotent
// upsert.
type Indexer struct {
	cfg  Config
	deps Deps

	state     atomic.Int32
	gen       atomic.Uint64
	committed atomic.Uint64

	logger *slog.Logger
}

// New creates an Indexer. It panics if Client or Registry is missing, since
// no run can make progress without them.
func New(cfg Config, deps Deps) *Indexer {
	if deps.Client == nil || deps.Registry == nil {
		panic("indexer: client and registry are required")
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = time.Minute
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With(slog.String("component", "indexer")),
	}
}

// State returns the current lifecycle phase.
func (ix *Indexer) State() State {
	return State(ix.state.Load())
}

// Generation returns the current run generation. Each catch-up bumps it;
// enrichment results carrying an older generation are discarded.
func (ix *Indexer) Generation() uint64 {
	return ix.gen.Load()
}

// Run drives the indexer until ctx is cancelled. Failed runs are retried
// with exponential backoff; a run that reached the live phase resets the
// backoff.
func (ix *Indexer) Run(ctx context.Context) error {
	backoff := ix.cfg.RetryBackoff
	for {
		reachedLive, err := ix.runOnce(ctx)
		if ctx.Err() != nil {
			ix.state.Store(int32(StateIdle))
			return ctx.Err()
		}
		if reachedLive {
			backoff = ix.cfg.RetryBackoff
		}
		ix.logger.ErrorContext(ctx, "indexer run ended, retrying",
			slog.String("error", err.Error()),
			slog.Duration("backoff", backoff))

		select {
		case <-ctx.Done():
			ix.state.Store(int32(StateIdle))
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, ix.cfg.MaxBackoff)
	}
}

// runOnce performs one catch-up plus live phase. It reports whether the live
// phase was reached, which callers use to reset the retry backoff.
func (ix *Indexer) runOnce(ctx context.Context) (reachedLive bool, err error) {
	gen := ix.gen.Add(1)
	ix.state.Store(int32(StateCatchingUp))

	head, err := ix.deps.Client.BlockNumber(ctx)
	if err != nil {
		ix.state.Store(int32(StateError))
		return false, fmt.Errorf("indexer: block height: %w", err)
	}

	from := ix.resumeBlock(ctx)
	ix.logger.InfoContext(ctx, "catching up",
		slog.Uint64("generation", gen),
		slog.Uint64("from_block", from),
		slog.Uint64("head", head))

	logs, err := ix.deps.Client.FilterLogs(ctx, chain.NewKandelQuery(ix.cfg.Seeder, from, head, true))
	if err != nil {
		ix.state.Store(int32(StateError))
		return false, fmt.Errorf("indexer: historical logs [%d,%d]: %w", from, head, err)
	}

	events := ix.applyLogs(ctx, gen, logs)
	ix.archive(ctx, from, head, events)
	ix.commit(ctx, head)

	// Subscribe from the catch-up head so the boundary block is covered by
	// both phases rather than by neither.
	ch := make(chan types.Log, 128)
	sub, err := ix.deps.Client.SubscribeFilterLogs(ctx, chain.NewKandelQuery(ix.cfg.Seeder, head, 0, false), ch)
	if err != nil {
		return false, fmt.Errorf("indexer: subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	ix.state.Store(int32(StateLive))
	ix.logger.InfoContext(ctx, "live", slog.Uint64("generation", gen), slog.Int("known", ix.deps.Registry.Len()))

	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case serr := <-sub.Err():
			if serr == nil {
				serr = domain.ErrSubscriptionClosed
			}
			return true, fmt.Errorf("indexer: subscription lost: %w (%w)", serr, domain.ErrSubscriptionClosed)
		case log := <-ch:
			if ix.applyLog(ctx, gen, log) != nil {
				ix.commit(ctx, log.BlockNumber)
			}
		}
	}
}

// resumeBlock picks the catch-up start: one past the committed checkpoint,
// or the configured start block when no checkpoint is available.
func (ix *Indexer) resumeBlock(ctx context.Context) uint64 {
	if ix.deps.Checkpoints == nil {
		return ix.cfg.StartBlock
	}
	committed, err := ix.deps.Checkpoints.Get(ctx, ix.checkpointKey())
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			ix.logger.WarnContext(ctx, "checkpoint read failed, using start block",
				slog.String("error", err.Error()))
		}
		return ix.cfg.StartBlock
	}
	if committed < ix.cfg.StartBlock {
		return ix.cfg.StartBlock
	}
	return committed + 1
}

func (ix *Indexer) checkpointKey() string {
	return domain.NormalizeAddress(ix.cfg.Seeder.Hex())
}

// applyLogs decodes and applies a catch-up batch. Malformed entries are
// skipped individually so one bad log never poisons the batch.
func (ix *Indexer) applyLogs(ctx context.Context, gen uint64, logs []types.Log) []chain.NewKandelEvent {
	events := make([]chain.NewKandelEvent, 0, len(logs))
	for _, log := range logs {
		if ev := ix.applyLog(ctx, gen, log); ev != nil {
			events = append(events, *ev)
		}
	}
	return events
}

// applyLog decodes one log, upserts the instance, and enriches it on first
// sight. Returns the decoded event, or nil when the entry was skipped.
func (ix *Indexer) applyLog(ctx context.Context, gen uint64, log types.Log) *chain.NewKandelEvent {
	res := chain.DecodeNewKandel(log)
	if !res.Decoded() {
		ix.logger.WarnContext(ctx, "skipping malformed log entry",
			slog.Uint64("block", log.BlockNumber),
			slog.String("tx", log.TxHash.Hex()),
			slog.String("reason", res.Reason.Error()))
		return nil
	}
	ev := res.Event

	if gen != ix.gen.Load() {
		ix.logger.DebugContext(ctx, "discarding result from superseded generation",
			slog.Uint64("generation", gen),
			slog.String("kandel", ev.Kandel.Hex()))
		return nil
	}

	created := ix.deps.Registry.Upsert(domain.Kandel{
		Address:            ev.Kandel.Hex(),
		Owner:              ev.Owner.Hex(),
		BaseQuoteOlKeyHash: ev.BaseQuoteOlKeyHash.Hex(),
		QuoteBaseOlKeyHash: ev.QuoteBaseOlKeyHash.Hex(),
		Market:             ix.cfg.Market,
		CreationBlock:      ev.BlockNumber,
		CreationTx:         ev.TxHash.Hex(),
	})
	if !created {
		return ev
	}

	ix.logger.InfoContext(ctx, "kandel discovered",
		slog.String("kandel", ev.Kandel.Hex()),
		slog.String("owner", ev.Owner.Hex()),
		slog.Uint64("block", ev.BlockNumber))

	ix.enrich(ctx, gen, ev)
	ix.announce(ctx, ev)
	return ev
}

// enrich reads reserve balances and token approvals for a fresh instance
// and merges whatever succeeded back into the registry. Partial results are
// kept; missing sides stay nil until a later refresh.
func (ix *Indexer) enrich(ctx context.Context, gen uint64, ev *chain.NewKandelEvent) {
	if ix.deps.Balances == nil {
		return
	}

	patch := domain.Kandel{Address: ev.Kandel.Hex(), Owner: ev.Owner.Hex()}

	bal := ix.deps.Balances.Fetch(ctx, ev.Kandel)
	if bal.BidErr == nil {
		patch.QuoteReserve = bal.Bid
	}
	if bal.AskErr == nil {
		patch.BaseReserve = bal.Ask
	}
	if bal.Partial() {
		ix.logger.WarnContext(ctx, "enrichment incomplete",
			slog.String("kandel", ev.Kandel.Hex()),
			slog.String("error", fmt.Errorf("%w: %w", domain.ErrPartialEnrichment, bal.Err()).Error()))
	}

	patch.NeedsBaseApproval = ix.needsApproval(ctx, ix.cfg.Market.BaseToken, ev)
	patch.NeedsQuoteApproval = ix.needsApproval(ctx, ix.cfg.Market.QuoteToken, ev)

	if gen != ix.gen.Load() {
		ix.logger.DebugContext(ctx, "discarding enrichment from superseded generation",
			slog.Uint64("generation", gen),
			slog.String("kandel", ev.Kandel.Hex()))
		return
	}
	ix.deps.Registry.Upsert(patch)
}

// needsApproval reports whether the owner has granted the instance a token
// allowance. Returns nil when the read failed, leaving the flag unknown.
func (ix *Indexer) needsApproval(ctx context.Context, token string, ev *chain.NewKandelEvent) *bool {
	if token == "" {
		return nil
	}
	allowance, err := chain.Allowance(ctx, ix.deps.Client, common.HexToAddress(token), ev.Owner, ev.Kandel)
	if err != nil {
		ix.logger.WarnContext(ctx, "allowance read failed",
			slog.String("token", token),
			slog.String("kandel", ev.Kandel.Hex()),
			slog.String("error", err.Error()))
		return nil
	}
	needs := allowance.Sign() == 0
	return &needs
}

// discoveredPayload is the JSON body published on the signal bus for each
// newly discovered instance.
type discoveredPayload struct {
	Kandel             string `json:"kandel"`
	Owner              string `json:"owner"`
	BaseQuoteOlKeyHash string `json:"baseQuoteOlKeyHash"`
	QuoteBaseOlKeyHash string `json:"quoteBaseOlKeyHash"`
	Block              uint64 `json:"block"`
	Tx                 string `json:"tx"`
}

func (ix *Indexer) announce(ctx context.Context, ev *chain.NewKandelEvent) {
	payload, err := json.Marshal(discoveredPayload{
		Kandel:             domain.NormalizeAddress(ev.Kandel.Hex()),
		Owner:              domain.NormalizeAddress(ev.Owner.Hex()),
		BaseQuoteOlKeyHash: ev.BaseQuoteOlKeyHash.Hex(),
		QuoteBaseOlKeyHash: ev.QuoteBaseOlKeyHash.Hex(),
		Block:              ev.BlockNumber,
		Tx:                 ev.TxHash.Hex(),
	})
	if err != nil {
		ix.logger.ErrorContext(ctx, "marshal discovery payload", slog.String("error", err.Error()))
		return
	}

	if ix.deps.Bus != nil {
		if err := ix.deps.Bus.Publish(ctx, ChannelKandels, payload); err != nil {
			ix.logger.WarnContext(ctx, "publish discovery", slog.String("error", err.Error()))
		}
		if err := ix.deps.Bus.StreamAppend(ctx, StreamKandels, payload); err != nil {
			ix.logger.WarnContext(ctx, "append discovery to stream", slog.String("error", err.Error()))
		}
	}

	if ix.deps.Notifier != nil {
		msg := fmt.Sprintf("Kandel %s deployed by %s at block %d",
			ev.Kandel.Hex(), ev.Owner.Hex(), ev.BlockNumber)
		if err := ix.deps.Notifier.Notify(ctx, "kandel_discovered", "New Kandel", msg); err != nil {
			ix.logger.WarnContext(ctx, "notify discovery", slog.String("error", err.Error()))
		}
	}
}

func (ix *Indexer) archive(ctx context.Context, from, to uint64, events []chain.NewKandelEvent) {
	if ix.deps.Archiver == nil || len(events) == 0 {
		return
	}
	if err := ix.deps.Archiver.ArchiveBatch(ctx, from, to, events); err != nil {
		ix.logger.WarnContext(ctx, "archive event batch",
			slog.Uint64("from_block", from),
			slog.Uint64("to_block", to),
			slog.String("error", err.Error()))
	}
}

// commit records the highest processed block. The checkpoint only moves
// forward: a re-delivered old block never rewinds it. Checkpoint failures
// are logged but never stop the run; the worst case is re-scanning a few
// blocks after restart.
func (ix *Indexer) commit(ctx context.Context, block uint64) {
	if ix.deps.Checkpoints == nil {
		return
	}
	for {
		cur := ix.committed.Load()
		if block <= cur {
			return
		}
		if ix.committed.CompareAndSwap(cur, block) {
			break
		}
	}
	if err := ix.deps.Checkpoints.Commit(ctx, ix.checkpointKey(), block); err != nil {
		ix.logger.WarnContext(ctx, "checkpoint commit failed",
			slog.Uint64("block", block),
			slog.String("error", err.Error()))
	}
}

// RefreshBalances re-reads reserve balances for one known instance and
// merges the result, tagging it with the current generation. Used by the
// HTTP layer for on-demand refresh.
func (ix *Indexer) RefreshBalances(ctx context.Context, address string) (Balances, error) {
	k, ok := ix.deps.Registry.Get(address)
	if !ok {
		return Balances{}, fmt.Errorf("indexer: kandel %s: %w", address, domain.ErrNotFound)
	}
	if ix.deps.Balances == nil {
		return Balances{}, fmt.Errorf("indexer: balance tracker not configured: %w", domain.ErrNotFound)
	}

	gen := ix.gen.Load()
	bal := ix.deps.Balances.Fetch(ctx, common.HexToAddress(k.Address))

	patch := domain.Kandel{Address: k.Address, Owner: k.Owner}
	if bal.BidErr == nil {
		patch.QuoteReserve = bal.Bid
	}
	if bal.AskErr == nil {
		patch.BaseReserve = bal.Ask
	}
	if gen == ix.gen.Load() {
		ix.deps.Registry.Upsert(patch)
	}
	return bal, nil
}
