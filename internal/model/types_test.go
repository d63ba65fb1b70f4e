package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompareMode(t *testing.T) {
	cases := []struct {
		tag  string
		want CompareMode
	}{
		{"", CompareModeNone},
		{"noCompare", CompareModeNone},
		{"compare", CompareModeStandard},
		{"compare2", CompareModeConditional},
	}
	for _, tc := range cases {
		got, err := ParseCompareMode(tc.tag)
		require.NoError(t, err, tc.tag)
		assert.Equal(t, tc.want, got, tc.tag)
	}

	_, err := ParseCompareMode("compare3")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestCompareModeRoundTrip(t *testing.T) {
	for _, m := range []CompareMode{CompareModeNone, CompareModeStandard, CompareModeConditional} {
		got, err := ParseCompareMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestBlacklist(t *testing.T) {
	b := NewBlacklist(" Dumper ", "cheater", "")
	assert.True(t, b.Contains("dumper"))
	assert.True(t, b.Contains("CHEATER"))
	assert.True(t, b.Contains("  Dumper"))
	assert.False(t, b.Contains("honest"))
	assert.False(t, b.Contains(""))
}

func TestCellRef(t *testing.T) {
	ref := CellRef{SpreadsheetID: "id", SheetName: "Bounds", Cell: "B2"}
	assert.True(t, ref.Valid())
	assert.Equal(t, "'Bounds'!B2", ref.Range())

	assert.False(t, CellRef{SheetName: "Bounds", Cell: "B2"}.Valid())
	assert.False(t, CellRef{}.Valid())
}

func TestAdjustmentRangeBounds(t *testing.T) {
	lo, hi := AdjustmentRange{A: 5, B: 1}.Bounds()
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 5.0, hi)

	lo, hi = AdjustmentRange{A: 1, B: 5}.Bounds()
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 5.0, hi)
}

func TestPriceUpdatePure(t *testing.T) {
	price := 10.0
	assert.True(t, PriceUpdate{ProductID: 1, Price: &price}.Pure())
	assert.False(t, PriceUpdate{ProductID: 1}.Pure())
	assert.False(t, PriceUpdate{ProductID: 1, Price: &price, Variants: []VariantDelta{{VariantID: 2}}}.Pure())
}

func TestDeltaDirectionString(t *testing.T) {
	assert.Equal(t, "priceplus", DeltaIncrease.String())
	assert.Equal(t, "priceminus", DeltaDecrease.String())
}

func TestOfferPriceValue(t *testing.T) {
	assert.Equal(t, 0.0, Offer{}.PriceValue())
	p := 9.5
	assert.Equal(t, 9.5, Offer{Price: &p}.PriceValue())
}
