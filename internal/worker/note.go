package worker

import (
	"fmt"
	"strings"
	"time"

	"github.com/fairyhunter13/plati-repricer/internal/model"
)

// noteTimeLayout matches the sheet's last-update column format.
const noteTimeLayout = "2006-01-02 15:04:05"

// maxBelowSellers caps the below-minimum diagnostic list in a note.
const maxBelowSellers = 6

// buildNote renders the human-readable writeback note for one processed row.
func buildNote(req *model.PricingRequest, final *float64, analysis *model.AnalysisResult, outcome string) string {
	ts := time.Now().Format("02/01/2006 15:04:05")
	var b strings.Builder

	switch outcome {
	case outcomeUpdated:
		if req.CompareMode == model.CompareModeNone {
			fmt.Fprintf(&b, "%s no compare, updated to %.3f\n", ts, *final)
		} else {
			fmt.Fprintf(&b, "%s updated to %.3f\n", ts, *final)
		}
	case outcomeSuppressed:
		fmt.Fprintf(&b, "%s current price %.3f already beats target %.3f, update suppressed\n",
			ts, deref(req.CurrentPrice), *final)
	case outcomeBelowMin:
		fmt.Fprintf(&b, "%s final price (%.3f) is below minimum (%.3f), not updated\n",
			ts, *final, deref(req.MinPrice))
	case outcomeNoMinPrice:
		fmt.Fprintf(&b, "%s no minimum price configured, not updated\n", ts)
	}

	if analysis != nil {
		writeAnalysis(&b, req, analysis)
	}
	return b.String()
}

// writeAnalysis appends the comparison diagnostics: reference seller, bounds,
// sellers under the minimum, and the cheapest offers.
func writeAnalysis(b *strings.Builder, req *model.PricingRequest, analysis *model.AnalysisResult) {
	refName := "max price"
	refPrice := deref(req.MaxPrice)
	if analysis.Competitive != nil {
		refName = analysis.Competitive.Seller
		refPrice = deref(analysis.CompetitivePrice)
	}
	fmt.Fprintf(b, "- reference: %s = %.6f\n", refName, refPrice)
	fmt.Fprintf(b, "min = %s, max = %s\n", formatOpt(req.MinPrice), formatOpt(req.MaxPrice))

	if len(analysis.Below) > 0 {
		b.WriteString("sellers below minimum:\n")
		n := 0
		for _, o := range analysis.Below {
			if req.Blacklist.Contains(o.Seller) {
				continue
			}
			fmt.Fprintf(b, " %s = %.6f\n", o.Seller, o.PriceValue())
			if n++; n >= maxBelowSellers {
				break
			}
		}
	}

	if len(analysis.Cheapest) > 0 {
		b.WriteString("cheapest offers:\n")
		for _, o := range analysis.Cheapest {
			fmt.Fprintf(b, "- %s (%s): %.6f\n", o.Name, o.Seller, o.PriceValue())
		}
	}
}

func formatOpt(v *float64) string {
	if v == nil {
		return "none"
	}
	return fmt.Sprintf("%.6f", *v)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
