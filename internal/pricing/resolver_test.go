package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/plati-repricer/internal/model"
)

func TestResolveVariantDeltaIncrease(t *testing.T) {
	d, err := ResolveVariantDelta(42, 150.0, 2, ProductPricing{BasePrice: 40.0, UnitCount: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(42), d.VariantID)
	assert.Equal(t, model.DeltaIncrease, d.Direction)
	assert.Equal(t, 10.0, d.Magnitude)
	require.NotNil(t, d.TargetPrice)
	assert.Equal(t, 50.0, *d.TargetPrice)
	assert.Equal(t, 2, d.Precision)
}

func TestResolveVariantDeltaDecrease(t *testing.T) {
	d, err := ResolveVariantDelta(7, 150.0, 2, ProductPricing{BasePrice: 60.0, UnitCount: 3})
	require.NoError(t, err)
	assert.Equal(t, model.DeltaDecrease, d.Direction)
	assert.Equal(t, 10.0, d.Magnitude)
	assert.Equal(t, "priceminus", d.Direction.String())
}

func TestResolveVariantDeltaZeroIsIncrease(t *testing.T) {
	d, err := ResolveVariantDelta(1, 50.0, 2, ProductPricing{BasePrice: 50.0, UnitCount: 1})
	require.NoError(t, err)
	assert.Equal(t, model.DeltaIncrease, d.Direction)
	assert.Equal(t, 0.0, d.Magnitude)
}

func TestResolveVariantDeltaRoundsMagnitudeUp(t *testing.T) {
	d, err := ResolveVariantDelta(1, 10.111, 2, ProductPricing{BasePrice: 10.0, UnitCount: 1})
	require.NoError(t, err)
	assert.Equal(t, 0.12, d.Magnitude)
}

func TestResolveVariantDeltaBadUnitCount(t *testing.T) {
	_, err := ResolveVariantDelta(1, 10.0, 2, ProductPricing{BasePrice: 5.0, UnitCount: 0})
	assert.ErrorIs(t, err, model.ErrVariantNotFound)
}
