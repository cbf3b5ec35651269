package kandel

import "math"

// Field names used as keys in ValidationResult.Errors. They match the form
// field identifiers the UI binds error messages to.
const (
	FieldBaseAmount  = "baseAmount"
	FieldQuoteAmount = "quoteAmount"
	FieldMinPrice    = "minPrice"
	FieldMaxPrice    = "maxPrice"
	FieldPricePoints = "pricePoints"
	FieldStepSize    = "stepSize"
)

// maxPriceRatio is the widest allowed maxPrice/minPrice range. Wider grids
// spread capital too thin to quote competitively, so this is a hard error.
const maxPriceRatio = 10.0

// Params are the six raw user inputs of a Kandel deployment.
type Params struct {
	BaseAmount  float64 `json:"base_amount"`
	QuoteAmount float64 `json:"quote_amount"`
	MinPrice    float64 `json:"min_price"`
	MaxPrice    float64 `json:"max_price"`
	PricePoints int     `json:"price_points"`
	StepSize    int     `json:"step_size"`
}

// ValidationResult reports every violated rule, keyed by field.
type ValidationResult struct {
	IsValid bool              `json:"is_valid"`
	Errors  map[string]string `json:"errors"`
}

// Validate checks raw user inputs against the strategy invariants. All rules
// are evaluated independently so the UI can flag every offending field at
// once. It is total: zero, negative, and NaN inputs land in the
// "must be greater than 0" branch and never reach the range or ratio math.
func Validate(p Params) ValidationResult {
	errs := make(map[string]string)

	if !(p.BaseAmount > 0) {
		setFieldError(errs, FieldBaseAmount, "Base amount must be greater than 0")
	}
	if !(p.QuoteAmount > 0) {
		setFieldError(errs, FieldQuoteAmount, "Quote amount must be greater than 0")
	}

	minOK := p.MinPrice > 0 && !math.IsInf(p.MinPrice, 0)
	maxOK := p.MaxPrice > 0 && !math.IsInf(p.MaxPrice, 0)
	if !minOK {
		setFieldError(errs, FieldMinPrice, "Min price must be greater than 0")
	}
	if !maxOK {
		setFieldError(errs, FieldMaxPrice, "Max price must be greater than 0")
	}

	// Range rules only run on well-formed prices.
	if minOK && maxOK {
		if p.MinPrice >= p.MaxPrice {
			setFieldError(errs, FieldMinPrice, "Max price must be greater than min price")
			setFieldError(errs, FieldMaxPrice, "Max price must be greater than min price")
		} else if p.MaxPrice/p.MinPrice > maxPriceRatio {
			msg := "Price range too wide - consider a smaller range for better capital efficiency"
			setFieldError(errs, FieldMinPrice, msg)
			setFieldError(errs, FieldMaxPrice, msg)
		}
	}

	if p.PricePoints < 2 {
		setFieldError(errs, FieldPricePoints, "Price points must be at least 2")
	} else if p.PricePoints > 50 {
		setFieldError(errs, FieldPricePoints, "Price points should not exceed 50 for gas efficiency")
	}

	if p.StepSize < 1 {
		setFieldError(errs, FieldStepSize, "Step size must be at least 1")
	} else if p.StepSize >= p.PricePoints {
		setFieldError(errs, FieldStepSize, "Step size must be less than price points")
	}

	return ValidationResult{
		IsValid: len(errs) == 0,
		Errors:  errs,
	}
}

// setFieldError records a message for a field unless one is already present,
// so the first violated rule per field wins and output stays deterministic.
func setFieldError(errs map[string]string, field, msg string) {
	if _, ok := errs[field]; !ok {
		errs[field] = msg
	}
}
