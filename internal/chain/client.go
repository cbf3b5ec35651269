// Package chain adapts the EVM node into the narrow surface kandled needs:
// block-height and log queries, a log subscription, contract reads, and
// calldata packing for the Kandel and seeder contracts.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/raouf2ouf/kandled/internal/domain"
)

// Client is the chain collaborator surface consumed by the indexer and the
// balance tracker. *RPC implements it against a live node; tests provide
// fakes.
type Client interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// RPC wraps an ethclient connection and imposes a per-call timeout, since
// the node itself makes no latency promises. A timed-out call surfaces as a
// transient ErrRPC for the caller's retry policy.
type RPC struct {
	ec      *ethclient.Client
	timeout time.Duration
}

// Dial connects to the node at rawURL. Use a ws:// or wss:// endpoint when
// log subscriptions are needed. callTimeout bounds every unary call; zero
// disables the bound.
func Dial(ctx context.Context, rawURL string, callTimeout time.Duration) (*RPC, error) {
	ec, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rawURL, err)
	}
	return &RPC{ec: ec, timeout: callTimeout}, nil
}

// Close tears down the underlying RPC connection.
func (r *RPC) Close() {
	r.ec.Close()
}

func (r *RPC) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// BlockNumber returns the current chain height.
func (r *RPC) BlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := r.callCtx(ctx)
	defer cancel()
	n, err := r.ec.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("chain: block number: %w (%w)", err, domain.ErrRPC)
	}
	return n, nil
}

// FilterLogs runs a bounded historical log query.
func (r *RPC) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	ctx, cancel := r.callCtx(ctx)
	defer cancel()
	logs, err := r.ec.FilterLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("chain: filter logs: %w (%w)", err, domain.ErrRPC)
	}
	return logs, nil
}

// SubscribeFilterLogs opens a live log subscription. The subscription is
// long-lived, so the per-call timeout does not apply.
func (r *RPC) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	sub, err := r.ec.SubscribeFilterLogs(ctx, q, ch)
	if err != nil {
		return nil, fmt.Errorf("chain: subscribe logs: %w (%w)", err, domain.ErrRPC)
	}
	return sub, nil
}

// CallContract executes a read-only contract call at the latest block when
// blockNumber is nil.
func (r *RPC) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	ctx, cancel := r.callCtx(ctx)
	defer cancel()
	out, err := r.ec.CallContract(ctx, msg, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("chain: call %s: %w (%w)", msg.To, err, domain.ErrRPC)
	}
	return out, nil
}

// WaitForReceipt polls for the receipt of txHash and reports a failed status
// as ErrTxReverted, preserving the receipt for log extraction.
func (r *RPC) WaitForReceipt(ctx context.Context, txHash common.Hash, poll time.Duration) (*types.Receipt, error) {
	if poll <= 0 {
		poll = time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		receipt, err := r.ec.TransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("chain: tx %s: %w", txHash, domain.ErrTxReverted)
			}
			return receipt, nil
		}
		if err != ethereum.NotFound {
			return nil, fmt.Errorf("chain: receipt %s: %w (%w)", txHash, err, domain.ErrRPC)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
