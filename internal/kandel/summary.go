package kandel

// Summary describes a prospective Kandel position in quote-token terms.
type Summary struct {
	TotalValueQuote float64 `json:"total_value_quote"`
	MidPrice        float64 `json:"mid_price"`
	PriceRangePct   float64 `json:"price_range_pct"`
	SpreadPct       float64 `json:"spread_pct"`
	EstimatedAPRPct float64 `json:"estimated_apr_pct"`
}

// Summarize computes position metrics for validated params.
// expectedVolume24h is the anticipated 24h market volume in quote tokens,
// used for the APR estimate.
func Summarize(p Params, expectedVolume24h float64) Summary {
	midPrice := (p.MinPrice + p.MaxPrice) / 2
	totalValue := p.QuoteAmount + p.BaseAmount*midPrice
	rangePct := ((p.MaxPrice - p.MinPrice) / midPrice) * 100

	return Summary{
		TotalValueQuote: totalValue,
		MidPrice:        midPrice,
		PriceRangePct:   rangePct,
		SpreadPct:       rangePct / float64(p.PricePoints),
		EstimatedAPRPct: EstimateAPR(p, expectedVolume24h),
	}
}

// EstimateAPR roughly annualizes the spread capture of a Kandel position.
// Assumes half the average per-level spread is captured per unit of turnover.
func EstimateAPR(p Params, expectedVolume24h float64) float64 {
	midPrice := (p.MinPrice + p.MaxPrice) / 2
	totalValueInQuote := p.QuoteAmount + p.BaseAmount*midPrice
	if totalValueInQuote == 0 || midPrice == 0 {
		return 0
	}

	averageSpread := (p.MaxPrice - p.MinPrice) / float64(p.PricePoints)
	spreadPercentage := averageSpread / midPrice

	turnoverRatio := expectedVolume24h / totalValueInQuote
	dailyReturn := turnoverRatio * spreadPercentage * 0.5

	return dailyReturn * 365 * 100
}
