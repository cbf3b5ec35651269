package domain

import "time"

// Offer is a single resting offer from the exchange's live order book.
// Total, when reported by the exchange, already includes fee/rounding
// adjustments and takes precedence over Volume*Price.
type Offer struct {
	ID     string  `json:"id"`
	Maker  string  `json:"maker"`
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
	Total  float64 `json:"total,omitempty"`
	Side   Side    `json:"side"`
}

// DepthEntry is an Offer annotated with the running cumulative quote volume
// up to and including this level. Cumulative is non-decreasing in the side's
// sort order.
type DepthEntry struct {
	Offer
	Cumulative float64 `json:"cumulative"`
}

// BookSnapshot is a raw bid/ask snapshot for one market, as pushed by the
// exchange collaborator.
type BookSnapshot struct {
	MarketKey string    `json:"market_key"`
	Bids      []Offer   `json:"bids"`
	Asks      []Offer   `json:"asks"`
	Timestamp time.Time `json:"timestamp"`
}

// DepthView is the cumulative-depth rendering of a BookSnapshot that the UI
// displays.
type DepthView struct {
	MarketKey     string       `json:"market_key"`
	Bids          []DepthEntry `json:"bids"`
	Asks          []DepthEntry `json:"asks"`
	MaxCumulative float64      `json:"max_cumulative"`
	Timestamp     time.Time    `json:"timestamp"`
}
