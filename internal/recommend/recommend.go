// Package recommend derives rule-based buy, sell and diversify signals from
// valued positions and their market data.
package recommend

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/portfolio"
)

// Kind tags a recommendation variant on the wire.
type Kind string

const (
	KindBuy       Kind = "buy"
	KindSell      Kind = "sell"
	KindDiversify Kind = "diversify"
)

// Thresholds, all in whole-number percents except PEDiscount.
const (
	TakeProfitPercent  = 50.0
	CutLossPercent     = -20.0
	PEDiscount         = 0.8
	MaxPositionPercent = 25.0
	MaxSectorPercent   = 40.0
)

// Recommendation is one of Buy, Sell or Diversify.
type Recommendation interface {
	Kind() Kind
	Subject() string
}

// Buy flags a cheap symbol trading below its 50-day average.
type Buy struct {
	Symbol             string  `json:"symbol"`
	Reason             string  `json:"reason"`
	Price              float64 `json:"price"`
	MovingAverage50Day float64 `json:"movingAverage50Day"`
	PERatio            float64 `json:"peRatio"`
	SectorAveragePE    float64 `json:"sectorAveragePE"`
}

func (Buy) Kind() Kind        { return KindBuy }
func (b Buy) Subject() string { return b.Symbol }

func (b Buy) MarshalJSON() ([]byte, error) {
	type alias Buy
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{KindBuy, alias(b)})
}

// SellAction names which sell rule fired.
type SellAction string

const (
	TakeProfits SellAction = "take_profits"
	CutLosses   SellAction = "cut_losses"
)

// Sell flags a position with a large gain or loss.
type Sell struct {
	Symbol          string     `json:"symbol"`
	PositionID      int64      `json:"positionId"`
	Action          SellAction `json:"action"`
	Reason          string     `json:"reason"`
	GainLossPercent float64    `json:"gainLossPercent"`
}

func (Sell) Kind() Kind        { return KindSell }
func (s Sell) Subject() string { return s.Symbol }

func (s Sell) MarshalJSON() ([]byte, error) {
	type alias Sell
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{KindSell, alias(s)})
}

// Scope is what a diversify signal is about.
type Scope string

const (
	ScopePosition Scope = "position"
	ScopeSector   Scope = "sector"
)

// Diversify flags a concentration in one symbol or one sector.
type Diversify struct {
	Scope         Scope   `json:"scope"`
	Name          string  `json:"name"`
	WeightPercent float64 `json:"weightPercent"`
	Reason        string  `json:"reason"`
}

func (Diversify) Kind() Kind        { return KindDiversify }
func (d Diversify) Subject() string { return d.Name }

func (d Diversify) MarshalJSON() ([]byte, error) {
	type alias Diversify
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{KindDiversify, alias(d)})
}

// Analyze applies the rules to every item priced from live data. Output is
// sells, then buys, then diversify signals, each ordered by subject.
func Analyze(summary portfolio.Summary, items []portfolio.ValuedPosition) []Recommendation {
	var (
		sells, buys, diversify []Recommendation
		bySymbol               = map[string]float64{}
		bySector               = map[string]float64{}
		boughtSymbol           = map[string]bool{}
	)

	for _, it := range items {
		if it.Quote == nil || it.Quote.Synthetic {
			continue
		}
		q := it.Quote

		if it.GainLossPercent != nil {
			switch pct := *it.GainLossPercent; {
			case pct >= TakeProfitPercent:
				sells = append(sells, Sell{
					Symbol:          it.Symbol,
					PositionID:      it.ID,
					Action:          TakeProfits,
					GainLossPercent: pct,
					Reason:          fmt.Sprintf("Up %.1f%% on cost, consider taking profits", pct),
				})
			case pct <= CutLossPercent:
				sells = append(sells, Sell{
					Symbol:          it.Symbol,
					PositionID:      it.ID,
					Action:          CutLosses,
					GainLossPercent: pct,
					Reason:          fmt.Sprintf("Down %.1f%% on cost, consider cutting losses", -pct),
				})
			}
		}

		if b, ok := buySignal(q.Symbol, q.CurrentPrice, q.PERatio, q.SectorAveragePE, q.MovingAverage50Day); ok && !boughtSymbol[b.Symbol] {
			boughtSymbol[b.Symbol] = true
			buys = append(buys, b)
		}

		if it.CurrentValue != nil {
			bySymbol[it.Symbol] += *it.CurrentValue
			if q.Sector != "" {
				bySector[q.Sector] += *it.CurrentValue
			}
		}
	}

	if summary.TotalValue > 0 {
		for symbol, value := range bySymbol {
			if w := value / summary.TotalValue * 100; w > MaxPositionPercent {
				diversify = append(diversify, Diversify{
					Scope:         ScopePosition,
					Name:          symbol,
					WeightPercent: w,
					Reason:        fmt.Sprintf("%s is %.1f%% of the portfolio, above the %.0f%% guideline", symbol, w, MaxPositionPercent),
				})
			}
		}
		for sector, value := range bySector {
			if w := value / summary.TotalValue * 100; w > MaxSectorPercent {
				diversify = append(diversify, Diversify{
					Scope:         ScopeSector,
					Name:          sector,
					WeightPercent: w,
					Reason:        fmt.Sprintf("%s is %.1f%% of the portfolio, above the %.0f%% guideline", sector, w, MaxSectorPercent),
				})
			}
		}
	}

	sortBySubject(sells)
	sortBySubject(buys)
	sort.SliceStable(diversify, func(i, j int) bool {
		a, b := diversify[i].(Diversify), diversify[j].(Diversify)
		if a.Scope != b.Scope {
			return a.Scope == ScopePosition
		}
		return a.Name < b.Name
	})

	out := make([]Recommendation, 0, len(sells)+len(buys)+len(diversify))
	out = append(out, sells...)
	out = append(out, buys...)
	return append(out, diversify...)
}

// buySignal fires when P/E is below PEDiscount of the sector average and the
// price is under the 50-day moving average.
func buySignal(symbol string, price float64, pe, sectorPE, ma50 *float64) (Buy, bool) {
	if pe == nil || sectorPE == nil || ma50 == nil {
		return Buy{}, false
	}
	if *pe <= 0 || *sectorPE <= 0 || price <= 0 {
		return Buy{}, false
	}
	if *pe >= PEDiscount*(*sectorPE) || price >= *ma50 {
		return Buy{}, false
	}
	return Buy{
		Symbol:             symbol,
		Price:              price,
		MovingAverage50Day: *ma50,
		PERatio:            *pe,
		SectorAveragePE:    *sectorPE,
		Reason: fmt.Sprintf("P/E %.1f is well below the sector average %.1f and the price is under its 50-day average",
			*pe, *sectorPE),
	}, true
}

func sortBySubject(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Subject() < recs[j].Subject() })
}
