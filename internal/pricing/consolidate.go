package pricing

import (
	"math"

	"github.com/fairyhunter13/plati-repricer/internal/model"
	"github.com/fairyhunter13/plati-repricer/internal/obs"
)

type mergedUpdate struct {
	update   model.PriceUpdate
	pureSeen bool
	byID     map[int64]int
}

// Consolidate merges raw per-product updates produced by concurrent pipelines
// into one authoritative record per product id, preserving first-seen order.
//
// A pure update (no variants, non-nil price) is authoritative for the base
// price and the last pure one wins; a non-pure update's price only seeds the
// base while no pure update has been seen. Variants merge by id, later entry
// replacing earlier. Every surviving variant's delta is then recomputed
// against the final base price, which is why consolidation cannot simply
// concatenate raw updates. Consolidation is idempotent.
func Consolidate(updates []model.PriceUpdate) []model.PriceUpdate {
	order := make([]int64, 0, len(updates))
	merged := make(map[int64]*mergedUpdate, len(updates))

	for _, u := range updates {
		if u.Ignore {
			continue
		}
		m, ok := merged[u.ProductID]
		if !ok {
			m = &mergedUpdate{
				update: model.PriceUpdate{ProductID: u.ProductID},
				byID:   make(map[int64]int),
			}
			merged[u.ProductID] = m
			order = append(order, u.ProductID)
		}

		if u.Pure() {
			m.update.Price = u.Price
			m.pureSeen = true
		} else if u.Price != nil && !m.pureSeen {
			m.update.Price = u.Price
		}

		for _, v := range u.Variants {
			if idx, seen := m.byID[v.VariantID]; seen {
				m.update.Variants[idx] = v
				continue
			}
			m.byID[v.VariantID] = len(m.update.Variants)
			m.update.Variants = append(m.update.Variants, v)
		}
	}

	out := make([]model.PriceUpdate, 0, len(order))
	for _, id := range order {
		m := merged[id]
		m.update.Variants = recomputeDeltas(id, m.update.Price, m.update.Variants)
		out = append(out, m.update)
	}
	return out
}

// recomputeDeltas rebuilds each variant delta against the final base price.
// Variants without a retained target price cannot be recomputed and are
// dropped; the rest of the update is still sent.
func recomputeDeltas(productID int64, base *float64, variants []model.VariantDelta) []model.VariantDelta {
	if len(variants) == 0 {
		return nil
	}
	out := make([]model.VariantDelta, 0, len(variants))
	for _, v := range variants {
		if v.TargetPrice == nil {
			obs.Logger.Warn("consolidation_variant_dropped",
				"product_id", productID,
				"variant_id", v.VariantID,
				"reason", "missing target price",
			)
			continue
		}
		if base != nil {
			delta := *v.TargetPrice - *base
			v.Direction = model.DeltaIncrease
			if delta < 0 {
				v.Direction = model.DeltaDecrease
			}
			v.Magnitude = RoundUp(math.Abs(delta), v.Precision)
		}
		out = append(out, v)
	}
	return out
}
