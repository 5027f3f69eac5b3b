package portfolio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/models"
)

func TestValuate(t *testing.T) {
	p := models.Position{Symbol: "AAPL", Quantity: d("15"), PurchasePrice: d("155")}

	v := Valuate(p, quoteAt("AAPL", 180))

	require.NotNil(t, v.CurrentValue)
	assert.InDelta(t, 2700.0, *v.CurrentValue, 1e-9)
	assert.InDelta(t, 375.0, *v.GainLoss, 1e-9)
	assert.InDelta(t, 375.0/2325.0*100, *v.GainLossPercent, 1e-9)
}

func TestValuate_WatchOnlyIsUndefined(t *testing.T) {
	v := Valuate(models.Position{Symbol: "TSLA", PurchasePrice: d("999")}, quoteAt("TSLA", 250))

	assert.Nil(t, v.CurrentValue)
	assert.Nil(t, v.GainLoss)
	assert.Nil(t, v.GainLossPercent)
}

func TestValuate_MissingQuoteIsUndefined(t *testing.T) {
	v := Valuate(models.Position{Symbol: "AAPL", Quantity: d("1"), PurchasePrice: d("100")}, nil)
	assert.Equal(t, Valuation{}, v)
}

func TestValuate_ZeroCostBasis(t *testing.T) {
	v := Valuate(models.Position{Symbol: "GIFT", Quantity: d("10")}, quoteAt("GIFT", 5))

	require.NotNil(t, v.GainLossPercent)
	assert.Equal(t, 0.0, *v.GainLossPercent)
	assert.False(t, math.IsNaN(*v.GainLossPercent))
	assert.InDelta(t, 50.0, *v.GainLoss, 1e-9)
}

func TestNewValuedPosition_RoundsReportedPrice(t *testing.T) {
	p := models.Position{Symbol: "AAPL", Quantity: d("7"), PurchasePrice: d("4.14285714285714285714")}

	vp := NewValuedPosition(p, quoteAt("AAPL", 5))

	assert.Equal(t, "4.14285714", vp.PurchasePrice.String())
	require.NotNil(t, vp.GainLoss)
	assert.InDelta(t, 6.0, *vp.GainLoss, 1e-9, "valued at the carried average, not the rounded one")
}
