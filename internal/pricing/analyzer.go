package pricing

import (
	"sort"
	"strings"

	"github.com/fairyhunter13/plati-repricer/internal/model"
)

// cheapestCount is how many offers the diagnostics keep from the cheap end.
const cheapestCount = 4

// Analyze picks a competitive reference price from competitor offers.
//
// Blacklisted sellers are excluded from the reference selection; the
// competitive price is the cheapest remaining offer at or above minPrice.
// The Below and Cheapest diagnostic lists ignore the blacklist.
func Analyze(offers []model.Offer, minPrice *float64, blacklist model.Blacklist) (model.AnalysisResult, error) {
	if minPrice == nil {
		return model.AnalysisResult{}, model.ErrMinPriceRequired
	}

	sorted := make([]model.Offer, len(offers))
	copy(sorted, offers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PriceValue() < sorted[j].PriceValue()
	})

	var res model.AnalysisResult
	for i := range sorted {
		o := sorted[i]
		if blacklist.Contains(o.Seller) {
			continue
		}
		if o.Price != nil && o.PriceValue() >= *minPrice {
			res.Competitive = &o
			p := o.PriceValue()
			res.CompetitivePrice = &p
			break
		}
	}

	cutoff := *minPrice
	if res.CompetitivePrice != nil {
		cutoff = *res.CompetitivePrice
	}
	for _, o := range sorted {
		if o.PriceValue() < cutoff {
			res.Below = append(res.Below, o)
		}
	}

	n := cheapestCount
	if n > len(sorted) {
		n = len(sorted)
	}
	res.Cheapest = append(res.Cheapest, sorted[:n]...)

	return res, nil
}

// FilterOffers applies a request's keyword and sold-count filters.
// Keyword matching is case-insensitive against the offer name.
func FilterOffers(offers []model.Offer, req *model.PricingRequest) []model.Offer {
	out := make([]model.Offer, 0, len(offers))
	for _, o := range offers {
		if len(req.IncludeKeywords) > 0 && !matchesAny(o.Name, req.IncludeKeywords) {
			continue
		}
		if len(req.ExcludeKeywords) > 0 && matchesAny(o.Name, req.ExcludeKeywords) {
			continue
		}
		if o.SoldCount < req.MinSoldCount {
			continue
		}
		out = append(out, o)
	}
	return out
}

func matchesAny(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
