package portfolio

import (
	"github.com/atharvakonge/stock-portfolio-tracker/internal/marketdata"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/models"
)

// Valuation is a position priced against a quote. All fields are nil for
// watch-only entries and when no quote is available.
type Valuation struct {
	CurrentValue    *float64 `json:"currentValue,omitempty"`
	GainLoss        *float64 `json:"gainLoss,omitempty"`
	GainLossPercent *float64 `json:"gainLossPercent,omitempty"`
}

// Valuate prices p at q's current price.
func Valuate(p models.Position, q *marketdata.Quote) Valuation {
	if p.IsWatchOnly() || q == nil {
		return Valuation{}
	}

	qty := p.Quantity.InexactFloat64()
	currentValue := q.CurrentPrice * qty
	cost := p.PurchasePrice.InexactFloat64() * qty
	gainLoss := currentValue - cost

	gainLossPercent := 0.0
	if cost > 0 {
		gainLossPercent = gainLoss / cost * 100
	}

	return Valuation{
		CurrentValue:    &currentValue,
		GainLoss:        &gainLoss,
		GainLossPercent: &gainLossPercent,
	}
}

// ValuedPosition is a position with its quote and valuation.
type ValuedPosition struct {
	models.Position
	Quote *marketdata.Quote `json:"quote,omitempty"`
	Valuation
}

// NewValuedPosition values p against q (which may be nil). The reported
// purchase price is rounded to PricePlaces.
func NewValuedPosition(p models.Position, q *marketdata.Quote) ValuedPosition {
	v := Valuate(p, q)
	p.PurchasePrice = RoundPrice(p.PurchasePrice)
	return ValuedPosition{Position: p, Quote: q, Valuation: v}
}
