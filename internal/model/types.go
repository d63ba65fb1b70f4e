// Package model defines domain types used by the repricer.
package model

import "strings"

// Offer is one external seller's observed listing for a comparable item.
type Offer struct {
	Seller    string   `json:"seller"`
	Name      string   `json:"name"`
	Price     *float64 `json:"price,omitempty"`
	SoldCount int      `json:"sold_count"`
	Link      string   `json:"link,omitempty"`
}

// PriceValue returns the parsed offer price, or 0 when it is unknown.
func (o Offer) PriceValue() float64 {
	if o.Price == nil {
		return 0
	}
	return *o.Price
}

// CompareMode selects how a row's price is derived.
type CompareMode int

const (
	// CompareModeNone updates straight to the row's minimum price.
	CompareModeNone CompareMode = iota
	// CompareModeStandard compares against competitor offers.
	CompareModeStandard
	// CompareModeConditional compares, but suppresses the update when the
	// current own price already beats the computed target.
	CompareModeConditional
)

// compare-mode tags as they appear in the sheet
const (
	tagCompareNone        = "noCompare"
	tagCompareStandard    = "compare"
	tagCompareConditional = "compare2"
)

// ParseCompareMode maps a sheet tag to a CompareMode.
func ParseCompareMode(tag string) (CompareMode, error) {
	switch tag {
	case tagCompareNone, "":
		return CompareModeNone, nil
	case tagCompareStandard:
		return CompareModeStandard, nil
	case tagCompareConditional:
		return CompareModeConditional, nil
	}
	return CompareModeNone, &ValidationError{Field: "compare_mode", Reason: "unknown tag " + tag}
}

// String returns the sheet tag for the mode.
func (m CompareMode) String() string {
	switch m {
	case CompareModeStandard:
		return tagCompareStandard
	case CompareModeConditional:
		return tagCompareConditional
	default:
		return tagCompareNone
	}
}

// Blacklist is a case-insensitive set of seller names.
type Blacklist map[string]struct{}

// NewBlacklist builds a Blacklist from seller names.
func NewBlacklist(names ...string) Blacklist {
	b := make(Blacklist, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		b[strings.ToLower(n)] = struct{}{}
	}
	return b
}

// Contains reports whether the seller name is blacklisted.
func (b Blacklist) Contains(seller string) bool {
	_, ok := b[strings.ToLower(strings.TrimSpace(seller))]
	return ok
}

// CellRef addresses a single cell in a possibly foreign spreadsheet.
type CellRef struct {
	SpreadsheetID string
	SheetName     string
	Cell          string
}

// Valid reports whether the reference is fully specified.
func (c CellRef) Valid() bool {
	return c.SpreadsheetID != "" && c.SheetName != "" && c.Cell != ""
}

// Range returns the A1-notation range for the reference.
func (c CellRef) Range() string {
	return "'" + c.SheetName + "'!" + c.Cell
}

// AdjustmentRange is an order-independent pair of price offsets.
type AdjustmentRange struct {
	A float64
	B float64
}

// Bounds returns the range ordered low to high.
func (r AdjustmentRange) Bounds() (lo, hi float64) {
	if r.A <= r.B {
		return r.A, r.B
	}
	return r.B, r.A
}

// PricingRequest is one tracked row hydrated for a repricing cycle.
// It is immutable after hydration except for the two derived scalars
// CurrentPrice and TargetPrice set during processing.
type PricingRequest struct {
	RowIndex    int
	ProductName string
	ProductID   int64
	VariantID   *int64

	CompareMode CompareMode
	ListingURL  string
	Keywords    string

	MinPrice  *float64
	MaxPrice  *float64
	Stock     *int
	Blacklist Blacklist

	Adjustment *AdjustmentRange
	Precision  int

	IncludeKeywords []string
	ExcludeKeywords []string
	MinSoldCount    int

	MinPriceRef  CellRef
	MaxPriceRef  CellRef
	StockRef     CellRef
	BlacklistRef CellRef

	// derived during processing
	CurrentPrice *float64
	TargetPrice  *float64
}

// AnalysisResult is the outcome of analyzing competitor offers.
type AnalysisResult struct {
	// Competitive is the chosen reference offer, nil when none qualifies.
	Competitive *Offer
	// CompetitivePrice is the chosen reference price, nil when none qualifies.
	CompetitivePrice *float64
	// Below lists offers priced under the chosen (or minimum) price. Diagnostic only.
	Below []Offer
	// Cheapest lists the cheapest offers overall. Diagnostic only.
	Cheapest []Offer
}

// DeltaDirection is the sign of a variant delta.
type DeltaDirection int

const (
	// DeltaIncrease raises the base price for the variant.
	DeltaIncrease DeltaDirection = iota
	// DeltaDecrease lowers it.
	DeltaDecrease
)

// String returns the Digiseller wire tag for the direction.
func (d DeltaDirection) String() string {
	if d == DeltaDecrease {
		return "priceminus"
	}
	return "priceplus"
}

// VariantDelta is a signed incremental modifier for one product variant.
// TargetPrice and Precision are retained so consolidation can recompute the
// delta against a different final base price.
type VariantDelta struct {
	VariantID int64
	Magnitude float64
	Direction DeltaDirection
	// TargetPrice is the absolute per-unit price the delta was derived from.
	TargetPrice *float64
	Precision   int
}

// PriceUpdate is one product's pending price change.
type PriceUpdate struct {
	ProductID int64
	Price     *float64
	Variants  []VariantDelta
	// Ignore marks updates suppressed by conditional compare mode.
	Ignore bool
}

// Pure reports whether the update carries an authoritative base price and
// no variant modifiers.
func (u PriceUpdate) Pure() bool {
	return len(u.Variants) == 0 && u.Price != nil
}

// RowLog is one row's diagnostic writeback record.
type RowLog struct {
	RowIndex  int
	Note      string
	UpdatedAt string
}
