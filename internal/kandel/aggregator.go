package kandel

import (
	"sort"

	"github.com/raouf2ouf/kandled/internal/domain"
)

// BuildDepth turns one side of a raw order book into a cumulative-depth view.
// Asks sort ascending by price, bids descending, so the level closest to mid
// comes first on both sides. The cumulative column uses the exchange-reported
// total when present (it may include fees and rounding) and falls back to
// volume x price otherwise. The input slice is never mutated.
func BuildDepth(offers []domain.Offer, asksMode bool) []domain.DepthEntry {
	sorted := make([]domain.Offer, len(offers))
	copy(sorted, offers)

	if asksMode {
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })
	} else {
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price > sorted[j].Price })
	}

	out := make([]domain.DepthEntry, 0, len(sorted))
	cumulative := 0.0
	for _, o := range sorted {
		levelTotal := o.Total
		if levelTotal == 0 {
			levelTotal = o.Volume * o.Price
		}
		cumulative += levelTotal
		out = append(out, domain.DepthEntry{Offer: o, Cumulative: cumulative})
	}
	return out
}

// BuildDepthView aggregates both sides of a snapshot and records the larger
// of the two terminal cumulatives, which the UI uses to scale depth bars.
func BuildDepthView(snap domain.BookSnapshot) domain.DepthView {
	asks := BuildDepth(snap.Asks, true)
	bids := BuildDepth(snap.Bids, false)

	maxCumulative := 0.0
	if n := len(asks); n > 0 {
		maxCumulative = asks[n-1].Cumulative
	}
	if n := len(bids); n > 0 && bids[n-1].Cumulative > maxCumulative {
		maxCumulative = bids[n-1].Cumulative
	}

	return domain.DepthView{
		MarketKey:     snap.MarketKey,
		Bids:          bids,
		Asks:          asks,
		MaxCumulative: maxCumulative,
		Timestamp:     snap.Timestamp,
	}
}

// MatchOwnerOffers maps offer IDs to the Kandel instance that posted them,
// for the given set of instances. Maker comparison is case-insensitive.
func MatchOwnerOffers(snap domain.BookSnapshot, kandels []domain.Kandel) map[string]string {
	byMaker := make(map[string]string, len(kandels))
	for _, k := range kandels {
		byMaker[domain.NormalizeAddress(k.Address)] = k.Address
	}

	matched := make(map[string]string)
	scan := func(offers []domain.Offer) {
		for _, o := range offers {
			if addr, ok := byMaker[domain.NormalizeAddress(o.Maker)]; ok {
				matched[o.ID] = addr
			}
		}
	}
	scan(snap.Asks)
	scan(snap.Bids)
	return matched
}
