// Package domain defines the core entities shared across kandled: Kandel
// strategy instances, order ladders, order-book views, and the store
// interfaces their infrastructure implementations satisfy.
package domain

import (
	"math/big"
	"strings"
	"time"
)

// Market identifies the base/quote pair a Kandel instance trades on.
type Market struct {
	BaseToken     string `json:"base_token"`
	QuoteToken    string `json:"quote_token"`
	BaseDecimals  int    `json:"base_decimals"`
	QuoteDecimals int    `json:"quote_decimals"`
	TickSpacing   uint64 `json:"tick_spacing"`
}

// KandelParams mirrors the on-chain params struct passed to
// populateFromOffset.
type KandelParams struct {
	GasPrice    *big.Int `json:"gas_price"`
	GasReq      *big.Int `json:"gas_req"`
	StepSize    uint64   `json:"step_size"`
	PricePoints uint64   `json:"price_points"`
}

// Kandel is a deployed strategy instance discovered through a NewKandel
// deployment event. Identity key is Address (lowercase). Instances are
// append-only: created on first observation, later only enriched, never
// removed.
type Kandel struct {
	Address            string    `json:"address"`
	Owner              string    `json:"owner"`
	BaseQuoteOlKeyHash string    `json:"base_quote_ol_key_hash"`
	QuoteBaseOlKeyHash string    `json:"quote_base_ol_key_hash"`
	Market             Market    `json:"market"`
	CreationBlock      uint64    `json:"creation_block"`
	CreationTx         string    `json:"creation_tx"`
	Params             *KandelParams `json:"params,omitempty"`
	TickOffset         *big.Int  `json:"tick_offset,omitempty"`

	// Enrichment fields, populated after the creation event is observed.
	// nil means absent or stale; a bare re-observation of the creation
	// event never overwrites a non-nil value.
	BaseReserve        *big.Int `json:"base_reserve,omitempty"`
	QuoteReserve       *big.Int `json:"quote_reserve,omitempty"`
	NeedsBaseApproval  *bool    `json:"needs_base_approval,omitempty"`
	NeedsQuoteApproval *bool    `json:"needs_quote_approval,omitempty"`

	FirstSeenAt time.Time `json:"first_seen_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NormalizeAddress lowercases a hex address. Every address entering the
// registry passes through here so lookups never depend on checksum casing.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Registry is the single owned store of discovered Kandel instances. Only
// the indexer mutates it; every other component reads it.
type Registry interface {
	Upsert(k Kandel) (created bool)
	Get(address string) (Kandel, bool)
	ListByOwner(owner string) []Kandel
	List() []Kandel
	Len() int
}
