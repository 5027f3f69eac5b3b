package portfolio

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/marketdata"
)

const (
	daysPerYear = 365.25
	// minHoldingYears is about four days; shorter periods make compounding unstable.
	minHoldingYears = 0.01
)

// TimeBasedReturns are value-weighted percent changes per window. A window
// with no eligible position stays nil.
type TimeBasedReturns struct {
	SixMonth  *float64 `json:"sixMonth,omitempty"`
	OneYear   *float64 `json:"oneYear,omitempty"`
	ThreeYear *float64 `json:"threeYear,omitempty"`
}

// Summary is the portfolio-level roll-up. Percent fields are whole-number percents.
type Summary struct {
	TotalValue           float64          `json:"totalValue"`
	TotalGainLoss        float64          `json:"totalGainLoss"`
	TotalGainLossPercent float64          `json:"totalGainLossPercent"`
	AnnualizedReturn     float64          `json:"annualizedReturn"`
	TotalCashInvested    float64          `json:"totalCashInvested"`
	ItemCount            int              `json:"itemCount"`
	TimeBasedReturns     TimeBasedReturns `json:"timeBasedReturns"`

	TotalCostBasis         float64   `json:"totalCostBasis"`
	CostBasisReturnPercent float64   `json:"costBasisReturnPercent"`
	RealizedGainLoss       float64   `json:"realizedGainLoss"`
	SyntheticQuotes        int       `json:"syntheticQuotes"`
	AsOf                   time.Time `json:"asOf"`
}

// Summarize rolls valued positions and net cash invested into a Summary.
// Watch-only entries count toward ItemCount only.
func Summarize(items []ValuedPosition, cashInvested float64, now time.Time) Summary {
	s := Summary{
		TotalCashInvested: cashInvested,
		ItemCount:         len(items),
		AsOf:              now,
	}

	var (
		years, costs []float64
		owned        []ValuedPosition
	)
	for _, it := range items {
		if it.Quote != nil && it.Quote.Synthetic {
			s.SyntheticQuotes++
		}
		if it.IsWatchOnly() {
			continue
		}

		cost := it.CostBasis().InexactFloat64()
		years = append(years, holdingYears(it.PurchaseDate, now))
		costs = append(costs, cost)

		if it.CurrentValue == nil || it.GainLoss == nil {
			continue
		}
		owned = append(owned, it)
		s.TotalValue += *it.CurrentValue
		s.TotalGainLoss += *it.GainLoss
		s.TotalCostBasis += cost
	}

	if cashInvested > 0 {
		s.TotalGainLossPercent = s.TotalGainLoss / cashInvested * 100
	}
	if s.TotalCostBasis > 0 {
		s.CostBasisReturnPercent = s.TotalGainLoss / s.TotalCostBasis * 100
	}

	s.AnnualizedReturn = annualizedReturn(s.TotalGainLoss, cashInvested, weightedMean(years, costs))
	s.TimeBasedReturns = TimeBasedReturns{
		SixMonth:  windowReturn(owned, func(q *marketdata.Quote) *float64 { return q.PercentChange6Month }),
		OneYear:   windowReturn(owned, func(q *marketdata.Quote) *float64 { return q.PercentChange1Year }),
		ThreeYear: windowReturn(owned, func(q *marketdata.Quote) *float64 { return q.PercentChange3Year }),
	}
	return s
}

func holdingYears(purchased, now time.Time) float64 {
	if purchased.IsZero() || !now.After(purchased) {
		return 0
	}
	return now.Sub(purchased).Hours() / 24 / daysPerYear
}

// weightedMean returns 0 when the weights do not sum to a positive number.
func weightedMean(x, weights []float64) float64 {
	var total float64
	for _, w := range weights {
		total += w
	}
	if len(x) == 0 || total <= 0 {
		return 0
	}
	return stat.Mean(x, weights)
}

func annualizedReturn(gainLoss, cashInvested, avgYears float64) float64 {
	if cashInvested <= 0 || avgYears < minHoldingYears {
		return 0
	}
	base := 1 + gainLoss/cashInvested
	if base <= 0 {
		return -100
	}
	r := (math.Pow(base, 1/avgYears) - 1) * 100
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

func windowReturn(items []ValuedPosition, field func(*marketdata.Quote) *float64) *float64 {
	var changes, values []float64
	for _, it := range items {
		if it.Quote == nil || it.CurrentValue == nil {
			continue
		}
		change := field(it.Quote)
		if change == nil {
			continue
		}
		changes = append(changes, *change)
		values = append(values, *it.CurrentValue)
	}

	var total float64
	for _, v := range values {
		total += v
	}
	if len(changes) == 0 || total <= 0 {
		return nil
	}
	r := stat.Mean(changes, values)
	return &r
}
