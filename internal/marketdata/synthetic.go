package marketdata

import (
	"strings"
	"time"
)

type syntheticValues struct {
	name          string
	price         float64
	previousClose float64
	marketCap     float64
	peRatio       float64
	dividendYield float64
	beta          float64
	sector        string
}

// syntheticTable holds plausible static values used only to keep a UI
// populated when the upstream is down. Never use these for accounting.
var syntheticTable = map[string]syntheticValues{
	"AAPL":  {"Apple Inc.", 175.00, 173.50, 2.75e12, 28.5, 0.55, 1.25, "Technology"},
	"MSFT":  {"Microsoft Corporation", 380.00, 377.20, 2.82e12, 34.0, 0.80, 0.90, "Technology"},
	"GOOGL": {"Alphabet Inc.", 140.00, 139.10, 1.76e12, 25.0, 0, 1.05, "Communication Services"},
	"AMZN":  {"Amazon.com, Inc.", 180.00, 178.40, 1.87e12, 52.0, 0, 1.15, "Consumer Cyclical"},
	"META":  {"Meta Platforms, Inc.", 480.00, 474.90, 1.22e12, 27.0, 0.40, 1.20, "Communication Services"},
	"TSLA":  {"Tesla, Inc.", 250.00, 255.30, 7.95e11, 70.0, 0, 2.30, "Consumer Cyclical"},
	"NVDA":  {"NVIDIA Corporation", 880.00, 870.10, 2.20e12, 72.0, 0.02, 1.70, "Technology"},
	"JPM":   {"JPMorgan Chase & Co.", 195.00, 194.20, 5.60e11, 12.0, 2.30, 1.10, "Financial Services"},
	"BAC":   {"Bank of America Corporation", 37.00, 36.80, 2.90e11, 11.5, 2.60, 1.35, "Financial Services"},
	"JNJ":   {"Johnson & Johnson", 155.00, 155.60, 3.73e11, 15.0, 3.10, 0.55, "Healthcare"},
	"PFE":   {"Pfizer Inc.", 28.00, 28.20, 1.58e11, 14.0, 6.00, 0.65, "Healthcare"},
	"XOM":   {"Exxon Mobil Corporation", 115.00, 114.10, 4.55e11, 13.0, 3.30, 0.95, "Energy"},
	"KO":    {"The Coca-Cola Company", 60.00, 59.90, 2.59e11, 24.0, 3.10, 0.60, "Consumer Defensive"},
	"WMT":   {"Walmart Inc.", 60.00, 59.60, 4.84e11, 30.0, 1.35, 0.50, "Consumer Defensive"},
}

// syntheticQuote builds the fallback quote for symbol. ok is false when the
// symbol is not in the table.
func syntheticQuote(symbol string, now time.Time) (Quote, bool) {
	v, ok := syntheticTable[strings.ToUpper(symbol)]
	if !ok {
		return Quote{}, false
	}

	change := v.price - v.previousClose
	q := Quote{
		Symbol:        strings.ToUpper(symbol),
		Name:          v.name,
		Currency:      "USD",
		CurrentPrice:  v.price,
		PreviousClose: v.previousClose,
		Change:        change,
		ChangePercent: change / v.previousClose * 100,
		MarketCap:     positive(v.marketCap),
		PERatio:       positive(v.peRatio),
		DividendYield: positive(v.dividendYield),
		Beta:          positive(v.beta),
		Sector:        v.sector,
		Source:        SourceSynthetic,
		Synthetic:     true,
		FetchedAt:     now,
	}
	if pe, ok := sectorPEFallback[v.sector]; ok {
		q.SectorAveragePE = floatPtr(pe)
	}
	return q, true
}
