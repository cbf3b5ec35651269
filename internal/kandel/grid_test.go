package kandel

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raouf2ouf/kandled/internal/domain"
)

func testMarket() domain.Market {
	return domain.Market{
		BaseToken:     "0xdc64a140aa3e981100a9beca4e685f962f0cf6c9",
		QuoteToken:    "0x5fc8d32690cc91d4c39d9d3abcbd16989f875707",
		BaseDecimals:  18,
		QuoteDecimals: 6,
		TickSpacing:   1,
	}
}

func testGrid() *Grid {
	return NewGrid(testMarket(), NewEstimator(nil, nil))
}

func TestGrid_LadderShape(t *testing.T) {
	p := validParams() // 10 price points, 900..1000
	res := testGrid().Calculate(p)

	// floor(10/2) = 5 bids, 5 asks, nothing pruned for non-degenerate input.
	require.Len(t, res.Distribution.Bids, 5)
	require.Len(t, res.Distribution.Asks, 5)
	assert.EqualValues(t, 5, res.Call.FirstAskIndex)

	// Ladder indices partition contiguously around firstAskIndex.
	for i, b := range res.Distribution.Bids {
		assert.Equal(t, i, b.Index)
		assert.Equal(t, domain.SideBid, b.Side)
	}
	for i, a := range res.Distribution.Asks {
		assert.Equal(t, 5+i, a.Index)
		assert.Equal(t, domain.SideAsk, a.Side)
	}
}

func TestGrid_TickOffsetReconstruction(t *testing.T) {
	p := validParams()
	res := testGrid().Calculate(p)

	minTick := TickFromPrice(p.MinPrice)
	maxTick := TickFromPrice(p.MaxPrice)
	span := math.Abs(float64(maxTick - minTick))

	got := float64(res.Call.TickOffset) * float64(p.PricePoints-1)
	assert.InDelta(t, span, got, float64(p.PricePoints-1), "offset x (points-1) within one rounding unit per step")

	// Ticks are strictly monotonic across the whole ladder.
	all := append(append([]domain.LadderEntry{}, res.Distribution.Bids...), res.Distribution.Asks...)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i].Tick, all[i-1].Tick)
	}
}

func TestGrid_Deterministic(t *testing.T) {
	p := validParams()
	a := testGrid().Calculate(p)
	b := testGrid().Calculate(p)
	assert.Equal(t, a, b)
}

func TestGrid_Conservation(t *testing.T) {
	p := validParams()
	g := testGrid()
	res := g.Calculate(p)

	baseWei := ToWei(p.BaseAmount, 18)
	quoteWei := ToWei(p.QuoteAmount, 6)

	askSum := new(big.Int)
	for _, a := range res.Distribution.Asks {
		askSum.Add(askSum, a.Gives)
	}
	bidSum := new(big.Int)
	for _, b := range res.Distribution.Bids {
		bidSum.Add(bidSum, b.Gives)
	}

	// Integer apportionment loses at most one unit per level.
	askDiff := new(big.Int).Sub(baseWei, askSum)
	bidDiff := new(big.Int).Sub(quoteWei, bidSum)
	assert.True(t, askDiff.Sign() >= 0 && askDiff.Cmp(big.NewInt(int64(len(res.Distribution.Asks)))) <= 0,
		"ask gives sum to baseAmount within one unit per level, diff=%s", askDiff)
	assert.True(t, bidDiff.Sign() >= 0 && bidDiff.Cmp(big.NewInt(int64(len(res.Distribution.Bids)))) <= 0,
		"bid gives sum to quoteAmount within one unit per level, diff=%s", bidDiff)
}

func TestGrid_MinimalTwoPoints(t *testing.T) {
	p := validParams()
	p.PricePoints = 2
	res := testGrid().Calculate(p)

	assert.Len(t, res.Distribution.Bids, 1)
	assert.Len(t, res.Distribution.Asks, 1)
	assert.EqualValues(t, 1, res.Call.FirstAskIndex)
	assert.EqualValues(t, 2, res.Call.To)
}

func TestGrid_ZeroGivesPruned(t *testing.T) {
	p := validParams()
	// A quote amount below one wei per bid level apportions to zero gives.
	p.QuoteAmount = 0.0000001 // 0.1 micro-quote over 5 bids at 6 decimals
	res := testGrid().Calculate(p)
	assert.Empty(t, res.Distribution.Bids)
	assert.Len(t, res.Distribution.Asks, 5)
}

func TestGrid_CallShape(t *testing.T) {
	p := validParams()
	res := testGrid().Calculate(p)

	assert.EqualValues(t, 0, res.Call.From)
	assert.EqualValues(t, p.PricePoints, res.Call.To)
	assert.Equal(t, TickFromPrice(p.MinPrice), res.Call.TickIndex0)
	assert.Equal(t, ToWei(p.QuoteAmount, 6), res.Call.BidGives)
	assert.Equal(t, ToWei(p.BaseAmount, 18), res.Call.AskGives)
	assert.Equal(t, res.Call.BidGives, res.Call.QuoteDeposit)
	assert.Equal(t, res.Call.AskGives, res.Call.BaseDeposit)
	assert.EqualValues(t, p.StepSize, res.Call.Params.StepSize)
	assert.EqualValues(t, p.PricePoints, res.Call.Params.PricePoints)
	assert.Equal(t, NewEstimator(nil, nil).Required(uint64(p.PricePoints)), res.Call.Value)
}

func TestTickFromPrice_Monotonic(t *testing.T) {
	prices := []float64{0.5, 1, 2, 900, 1000, 5000}
	prev := TickFromPrice(prices[0])
	for _, p := range prices[1:] {
		cur := TickFromPrice(p)
		assert.Greater(t, cur, prev)
		prev = cur
	}
	// Round-trip stays within one tick of quantization.
	for _, p := range prices {
		back := PriceFromTick(float64(TickFromPrice(p)))
		assert.InEpsilon(t, p, back, 0.0001)
	}
}
