package kandel

import "math/big"

// Estimator computes the provision (gas collateral) a Kandel must attach when
// posting its ladder. Defaults come from configuration; both can be
// overridden per call.
type Estimator struct {
	gasReq   *big.Int // gas limit per resting order
	gasPrice *big.Int // wei per gas unit
}

// NewEstimator creates an Estimator with the given defaults. Nil arguments
// fall back to 250k gas per order at 1 gwei, the seeder's own assumptions.
func NewEstimator(gasReq, gasPrice *big.Int) *Estimator {
	if gasReq == nil {
		gasReq = big.NewInt(250_000)
	}
	if gasPrice == nil {
		gasPrice = big.NewInt(1_000_000_000)
	}
	return &Estimator{gasReq: gasReq, gasPrice: gasPrice}
}

// GasReq returns a copy of the default per-order gas limit.
func (e *Estimator) GasReq() *big.Int { return new(big.Int).Set(e.gasReq) }

// GasPrice returns a copy of the default gas price.
func (e *Estimator) GasPrice() *big.Int { return new(big.Int).Set(e.gasPrice) }

// Required returns the provision for a ladder of pricePoints levels using
// the configured defaults: gasReq x gasPrice x 2 x pricePoints (each price
// point can hold both a bid and an ask). Strictly increasing in pricePoints.
func (e *Estimator) Required(pricePoints uint64) *big.Int {
	return e.RequiredWith(pricePoints, nil, nil)
}

// RequiredWith is Required with per-call overrides; nil keeps the default.
func (e *Estimator) RequiredWith(pricePoints uint64, gasReq, gasPrice *big.Int) *big.Int {
	if gasReq == nil {
		gasReq = e.gasReq
	}
	if gasPrice == nil {
		gasPrice = e.gasPrice
	}
	total := new(big.Int).SetUint64(pricePoints * 2)
	total.Mul(total, gasReq)
	total.Mul(total, gasPrice)
	return total
}
