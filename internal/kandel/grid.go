package kandel

import (
	"math"
	"math/big"

	"github.com/raouf2ouf/kandled/internal/domain"
)

// Grid is the distribution engine. It converts validated user inputs into a
// tick-indexed order ladder plus the raw populateFromOffset parameters.
type Grid struct {
	market    domain.Market
	estimator *Estimator
}

// NewGrid creates a Grid for the given market. The estimator supplies the
// provision attached to the resulting populate call.
func NewGrid(market domain.Market, estimator *Estimator) *Grid {
	return &Grid{market: market, estimator: estimator}
}

// Result bundles everything the submission path needs: the pruned ladder for
// display and the raw call parameters for populateFromOffset.
type Result struct {
	Distribution domain.Distribution `json:"distribution"`
	Call         domain.PopulateCall `json:"call"`
}

// Calculate builds the distribution for params that already passed Validate.
// It is deterministic and never fails for validated inputs; pricePoints == 2
// is the minimal case, producing one bid and one ask before zero-pruning.
//
// The tick offset is kept as a real number while generating ladder positions
// so per-level rounding never compounds across the grid; it is rounded to
// the nearest integer only once, for the submitted call.
func (g *Grid) Calculate(p Params) Result {
	minTick := TickFromPrice(p.MinPrice)
	maxTick := TickFromPrice(p.MaxPrice)
	offset := math.Abs(float64(maxTick-minTick)) / float64(p.PricePoints-1)

	// Indices below firstAskIndex quote bids, at or above it asks.
	firstAskIndex := p.PricePoints / 2
	numBids := firstAskIndex
	numAsks := p.PricePoints - firstAskIndex

	baseWei := ToWei(p.BaseAmount, g.market.BaseDecimals)
	quoteWei := ToWei(p.QuoteAmount, g.market.QuoteDecimals)

	// Capital is apportioned uniformly per side; integer division may leave
	// a sub-level remainder unallocated, within one wei per level.
	bidGives := new(big.Int)
	if numBids > 0 {
		bidGives.Div(quoteWei, big.NewInt(int64(numBids)))
	}
	askGives := new(big.Int)
	if numAsks > 0 {
		askGives.Div(baseWei, big.NewInt(int64(numAsks)))
	}

	var dist domain.Distribution
	for i := 0; i < p.PricePoints; i++ {
		tick := int64(math.Round(float64(minTick) + offset*float64(i)))
		price := PriceFromTick(float64(tick))

		if i < firstAskIndex {
			if bidGives.Sign() == 0 {
				continue
			}
			dist.Bids = append(dist.Bids, domain.LadderEntry{
				Index: i,
				Side:  domain.SideBid,
				Tick:  tick,
				Price: price,
				Gives: new(big.Int).Set(bidGives),
				Wants: quoteToBase(bidGives, price, g.market),
			})
		} else {
			if askGives.Sign() == 0 {
				continue
			}
			dist.Asks = append(dist.Asks, domain.LadderEntry{
				Index: i,
				Side:  domain.SideAsk,
				Tick:  tick,
				Price: price,
				Gives: new(big.Int).Set(askGives),
				Wants: baseToQuote(askGives, price, g.market),
			})
		}
	}

	call := domain.PopulateCall{
		From:          0,
		To:            uint64(p.PricePoints),
		TickIndex0:    minTick,
		TickOffset:    uint64(math.Round(offset)),
		FirstAskIndex: uint64(firstAskIndex),
		BidGives:      quoteWei,
		AskGives:      baseWei,
		Params: domain.KandelParams{
			GasPrice:    g.estimator.GasPrice(),
			GasReq:      g.estimator.GasReq(),
			StepSize:    uint64(p.StepSize),
			PricePoints: uint64(p.PricePoints),
		},
		BaseDeposit:  baseWei,
		QuoteDeposit: quoteWei,
		Value:        g.estimator.Required(uint64(p.PricePoints)),
	}

	return Result{Distribution: dist, Call: call}
}

// ToWei converts a human-unit amount to raw token units.
func ToWei(amount float64, decimals int) *big.Int {
	f := new(big.Float).SetPrec(128).SetFloat64(amount)
	scale := new(big.Float).SetPrec(128).SetInt(pow10(decimals))
	f.Mul(f, scale)
	wei, _ := f.Int(nil)
	return wei
}

// FromWei converts raw token units back to a human-unit amount.
func FromWei(amount *big.Int, decimals int) float64 {
	if amount == nil {
		return 0
	}
	f := new(big.Float).SetPrec(128).SetInt(amount)
	scale := new(big.Float).SetPrec(128).SetInt(pow10(decimals))
	f.Quo(f, scale)
	out, _ := f.Float64()
	return out
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// quoteToBase computes how much base a bid wants for the quote it gives at
// the level price.
func quoteToBase(quoteWei *big.Int, price float64, m domain.Market) *big.Int {
	human := FromWei(quoteWei, m.QuoteDecimals)
	if price == 0 {
		return new(big.Int)
	}
	return ToWei(human/price, m.BaseDecimals)
}

// baseToQuote computes how much quote an ask wants for the base it gives at
// the level price.
func baseToQuote(baseWei *big.Int, price float64, m domain.Market) *big.Int {
	human := FromWei(baseWei, m.BaseDecimals)
	return ToWei(human*price, m.QuoteDecimals)
}
