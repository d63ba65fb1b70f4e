package pricing

import (
	"math/rand/v2"

	"github.com/fairyhunter13/plati-repricer/internal/model"
)

// Calculator turns a reference price plus bounds and adjustment configuration
// into a final clamped, rounded price.
type Calculator struct {
	uniform func(lo, hi float64) float64
}

// NewCalculator returns a Calculator drawing adjustments from math/rand/v2.
func NewCalculator() *Calculator {
	return &Calculator{
		uniform: func(lo, hi float64) float64 {
			return lo + rand.Float64()*(hi-lo)
		},
	}
}

// newCalculatorWithUniform injects the random draw for deterministic tests.
func newCalculatorWithUniform(uniform func(lo, hi float64) float64) *Calculator {
	return &Calculator{uniform: uniform}
}

// FinalPrice computes the final price. The step order is fixed:
//
//  1. no competitive price: seed from the rounded-up max price, or fail
//  2. subtract a uniform random offset from the adjustment range
//  3. clamp to >= min
//  4. clamp to <= max
//  5. round up to the configured precision
//  6. re-clamp to <= max, since ceiling rounding can overshoot it
func (c *Calculator) FinalPrice(
	competitive, minPrice, maxPrice *float64,
	adj *model.AdjustmentRange,
	precision int,
) (float64, error) {
	var price float64
	if competitive != nil {
		price = *competitive
	} else {
		if maxPrice == nil {
			return 0, model.ErrNoReferencePrice
		}
		price = RoundUp(*maxPrice, precision)
	}

	if adj != nil {
		lo, hi := adj.Bounds()
		price -= c.uniform(lo, hi)
	}

	if minPrice != nil && price < *minPrice {
		price = *minPrice
	}
	if maxPrice != nil && price > *maxPrice {
		price = *maxPrice
	}

	price = RoundUp(price, precision)
	if maxPrice != nil && price > *maxPrice {
		price = *maxPrice
	}

	return price, nil
}
