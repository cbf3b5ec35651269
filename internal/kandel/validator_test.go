package kandel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() Params {
	return Params{
		BaseAmount:  1,
		QuoteAmount: 1,
		MinPrice:    900,
		MaxPrice:    1000,
		PricePoints: 10,
		StepSize:    1,
	}
}

func TestValidate_Valid(t *testing.T) {
	res := Validate(validParams())
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
}

func TestValidate_ZeroBaseAmount(t *testing.T) {
	p := Params{
		BaseAmount:  0,
		QuoteAmount: 100,
		MinPrice:    800,
		MaxPrice:    1200,
		PricePoints: 10,
		StepSize:    1,
	}
	res := Validate(p)
	require.False(t, res.IsValid)
	assert.Contains(t, res.Errors, FieldBaseAmount)
	assert.Len(t, res.Errors, 1, "no spurious errors on other fields")
}

func TestValidate_NaNRoutesToPositiveCheck(t *testing.T) {
	p := validParams()
	p.MinPrice = math.NaN()
	res := Validate(p)
	require.False(t, res.IsValid)
	assert.Equal(t, "Min price must be greater than 0", res.Errors[FieldMinPrice])
	// The NaN must not leak into the range rules: maxPrice stays clean.
	assert.NotContains(t, res.Errors, FieldMaxPrice)
}

func TestValidate_InvertedRangeFlagsBothPrices(t *testing.T) {
	p := validParams()
	p.MinPrice = 1000
	p.MaxPrice = 900
	res := Validate(p)
	require.False(t, res.IsValid)
	assert.Contains(t, res.Errors, FieldMinPrice)
	assert.Contains(t, res.Errors, FieldMaxPrice)
}

func TestValidate_RatioTooWideIsHardError(t *testing.T) {
	p := validParams()
	p.MinPrice = 100
	p.MaxPrice = 1001
	res := Validate(p)
	require.False(t, res.IsValid)
	assert.Contains(t, res.Errors[FieldMinPrice], "capital efficiency")
	assert.Contains(t, res.Errors[FieldMaxPrice], "capital efficiency")
}

func TestValidate_PricePointsBounds(t *testing.T) {
	p := validParams()
	p.PricePoints = 1
	p.StepSize = 1
	res := Validate(p)
	require.False(t, res.IsValid)
	assert.Contains(t, res.Errors, FieldPricePoints)
	assert.Contains(t, res.Errors, FieldStepSize) // stepSize >= pricePoints

	p.PricePoints = 51
	p.StepSize = 1
	res = Validate(p)
	require.False(t, res.IsValid)
	assert.Contains(t, res.Errors[FieldPricePoints], "exceed 50")
}

func TestValidate_StepSizeBounds(t *testing.T) {
	p := validParams()
	p.StepSize = 0
	res := Validate(p)
	require.False(t, res.IsValid)
	assert.Equal(t, "Step size must be at least 1", res.Errors[FieldStepSize])

	p.StepSize = 10
	res = Validate(p)
	require.False(t, res.IsValid)
	assert.Equal(t, "Step size must be less than price points", res.Errors[FieldStepSize])
}

func TestValidate_AllViolationsReported(t *testing.T) {
	res := Validate(Params{})
	require.False(t, res.IsValid)
	for _, field := range []string{FieldBaseAmount, FieldQuoteAmount, FieldMinPrice, FieldMaxPrice, FieldPricePoints, FieldStepSize} {
		assert.Contains(t, res.Errors, field)
	}
}
