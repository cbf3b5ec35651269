package kandel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	p := Params{
		BaseAmount:  2,
		QuoteAmount: 1000,
		MinPrice:    900,
		MaxPrice:    1100,
		PricePoints: 10,
		StepSize:    1,
	}
	s := Summarize(p, 10_000)

	assert.Equal(t, 1000.0, s.MidPrice)
	assert.Equal(t, 3000.0, s.TotalValueQuote)
	assert.InDelta(t, 20.0, s.PriceRangePct, 1e-9)
	assert.InDelta(t, 2.0, s.SpreadPct, 1e-9)
	assert.Greater(t, s.EstimatedAPRPct, 0.0)
}

func TestEstimateAPR_ZeroValuePosition(t *testing.T) {
	assert.Zero(t, EstimateAPR(Params{PricePoints: 10}, 10_000))
}
