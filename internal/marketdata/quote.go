// Package marketdata fetches quotes, fundamentals and price history from an
// upstream quote service and caches them per symbol.
package marketdata

import (
	"context"
	"errors"
	"time"
)

// Source tells whether a quote came from the upstream service or the
// static fallback table.
type Source string

const (
	SourceLive      Source = "live"
	SourceSynthetic Source = "synthetic"
)

// ErrQuoteUnavailable is returned when neither the live fetch nor the
// fallback could produce a quote.
var ErrQuoteUnavailable = errors.New("quote unavailable")

// Quote is the enriched snapshot of a symbol. Optional fields are nil when
// the upstream did not provide them or history was too short.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name,omitempty"`
	Currency      string  `json:"currency,omitempty"`
	CurrentPrice  float64 `json:"currentPrice"`
	PreviousClose float64 `json:"previousClose,omitempty"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Volume        int64   `json:"volume,omitempty"`

	FiftyTwoWeekHigh *float64 `json:"fiftyTwoWeekHigh,omitempty"`
	FiftyTwoWeekLow  *float64 `json:"fiftyTwoWeekLow,omitempty"`

	MarketCap       *float64 `json:"marketCap,omitempty"`
	PERatio         *float64 `json:"peRatio,omitempty"`
	ForwardPE       *float64 `json:"forwardPE,omitempty"`
	EPS             *float64 `json:"eps,omitempty"`
	DividendYield   *float64 `json:"dividendYield,omitempty"`
	Beta            *float64 `json:"beta,omitempty"`
	Sector          string   `json:"sector,omitempty"`
	Industry        string   `json:"industry,omitempty"`
	SectorAveragePE *float64 `json:"sectorAveragePE,omitempty"`

	MovingAverage50Day  *float64 `json:"movingAverage50Day,omitempty"`
	PercentChange6Month *float64 `json:"percentChange6Month,omitempty"`
	PercentChange1Year  *float64 `json:"percentChange1Year,omitempty"`
	PercentChange3Year  *float64 `json:"percentChange3Year,omitempty"`

	Source    Source    `json:"source"`
	Synthetic bool      `json:"synthetic"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// LivePrice is the primary price payload.
type LivePrice struct {
	Symbol           string
	Name             string
	Currency         string
	Price            float64
	PreviousClose    float64
	Volume           int64
	FiftyTwoWeekHigh float64
	FiftyTwoWeekLow  float64
	AsOf             time.Time
}

// Fundamentals is the supplementary payload; zero values mean "not reported".
type Fundamentals struct {
	MarketCap     float64
	PERatio       float64
	ForwardPE     float64
	EPS           float64
	DividendYield float64
	Beta          float64
	Sector        string
	Industry      string
}

// Fetcher is the upstream quote service. Each call is independent and may
// fail on its own.
type Fetcher interface {
	FetchLivePrice(ctx context.Context, symbol string) (LivePrice, error)
	FetchFundamentals(ctx context.Context, symbol string) (Fundamentals, error)
	FetchHistoricalCloses(ctx context.Context, symbol string, rangeDays int) ([]float64, error)
}

func floatPtr(v float64) *float64 { return &v }

// clone returns a copy of q that shares no pointer fields with it, so a
// cached quote cannot be altered through a returned one.
func (q Quote) clone() Quote {
	c := q
	for _, f := range []**float64{
		&c.FiftyTwoWeekHigh, &c.FiftyTwoWeekLow,
		&c.MarketCap, &c.PERatio, &c.ForwardPE, &c.EPS, &c.DividendYield, &c.Beta,
		&c.SectorAveragePE, &c.MovingAverage50Day,
		&c.PercentChange6Month, &c.PercentChange1Year, &c.PercentChange3Year,
	} {
		if *f != nil {
			*f = floatPtr(**f)
		}
	}
	return c
}


// positive returns a pointer to v when v > 0, nil otherwise.
func positive(v float64) *float64 {
	if v > 0 {
		return floatPtr(v)
	}
	return nil
}

// nonZero returns a pointer to v when v != 0, nil otherwise.
func nonZero(v float64) *float64 {
	if v != 0 {
		return floatPtr(v)
	}
	return nil
}
