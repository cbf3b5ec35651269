package domain

import "math/big"

// Side marks a ladder level as a buy or a sell.
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

// LadderEntry is one discretized price level of a Kandel distribution.
type LadderEntry struct {
	Index int      `json:"index"`
	Side  Side     `json:"side"`
	Tick  int64    `json:"tick"`
	Price float64  `json:"price"`
	Gives *big.Int `json:"gives"`
	Wants *big.Int `json:"wants"`
}

// Distribution is the full order ladder for a Kandel instance. Indices
// partition into a contiguous bid range below FirstAskIndex and an ask range
// at or above it; ticks form a strictly monotonic arithmetic sequence.
type Distribution struct {
	Bids []LadderEntry `json:"bids"`
	Asks []LadderEntry `json:"asks"`
}

// PopulateCall carries the raw parameters for populateFromOffset, in the
// argument order the contract expects. Value is the provision to attach to
// the transaction. Signing and broadcast are the wallet's concern, not ours.
type PopulateCall struct {
	From          uint64       `json:"from"`
	To            uint64       `json:"to"`
	TickIndex0    int64        `json:"tick_index0"`
	TickOffset    uint64       `json:"tick_offset"`
	FirstAskIndex uint64       `json:"first_ask_index"`
	BidGives      *big.Int     `json:"bid_gives"`
	AskGives      *big.Int     `json:"ask_gives"`
	Params        KandelParams `json:"params"`
	BaseDeposit   *big.Int     `json:"base_deposit"`
	QuoteDeposit  *big.Int     `json:"quote_deposit"`
	Value         *big.Int     `json:"value"`
}
