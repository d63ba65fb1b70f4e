package pricing

import (
	"math"

	"github.com/fairyhunter13/plati-repricer/internal/model"
)

// ProductPricing is a product's base price and per-unit count as reported by
// the pricing API.
type ProductPricing struct {
	BasePrice float64
	UnitCount int
}

// ResolveVariantDelta converts an absolute target price into a directional
// incremental rate relative to the product's base price.
//
// The delta computed here is provisional: the base price may not be the final
// one once concurrent updates for the same product are consolidated, so the
// per-unit target price and precision are retained on the result for the
// consolidation recompute.
func ResolveVariantDelta(variantID int64, targetPrice float64, precision int, p ProductPricing) (model.VariantDelta, error) {
	if p.UnitCount <= 0 {
		return model.VariantDelta{}, model.ErrVariantNotFound
	}

	perUnit := targetPrice / float64(p.UnitCount)
	delta := perUnit - p.BasePrice

	dir := model.DeltaIncrease
	if delta < 0 {
		dir = model.DeltaDecrease
	}

	return model.VariantDelta{
		VariantID:   variantID,
		Magnitude:   RoundUp(math.Abs(delta), precision),
		Direction:   dir,
		TargetPrice: &perUnit,
		Precision:   precision,
	}, nil
}
