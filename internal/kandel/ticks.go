// Package kandel implements the distribution engine: parameter validation,
// tick-space price grids, provision estimation, and order-book depth
// aggregation. Everything here is pure computation; chain access lives in
// internal/chain.
package kandel

import "math"

// tickBase is Mangrove's log-price quantum: a price at tick t is 1.0001^t.
const tickBase = 1.0001

var lnTickBase = math.Log(tickBase)

// TickFromPrice maps a price to the nearest integer tick. Monotonic in
// price; the exchange only accepts integer tick positions.
func TickFromPrice(price float64) int64 {
	return int64(math.Round(math.Log(price) / lnTickBase))
}

// PriceFromTick is the inverse mapping for a (possibly fractional) tick.
func PriceFromTick(tick float64) float64 {
	return math.Exp(tick * lnTickBase)
}
