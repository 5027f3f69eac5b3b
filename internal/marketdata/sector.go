package marketdata

// sectorPeers lists up to five bellwether symbols sampled for a sector's
// average P/E.
var sectorPeers = map[string][]string{
	"Technology":             {"AAPL", "MSFT", "NVDA", "ORCL", "ADBE"},
	"Communication Services": {"GOOGL", "META", "NFLX", "DIS", "VZ"},
	"Consumer Cyclical":      {"AMZN", "TSLA", "HD", "MCD", "NKE"},
	"Consumer Defensive":     {"WMT", "KO", "PG", "PEP", "COST"},
	"Financial Services":     {"JPM", "BAC", "WFC", "GS", "MS"},
	"Healthcare":             {"JNJ", "PFE", "UNH", "MRK", "ABBV"},
	"Energy":                 {"XOM", "CVX", "COP", "SLB", "EOG"},
	"Industrials":            {"CAT", "HON", "UPS", "BA", "GE"},
	"Utilities":              {"NEE", "DUK", "SO", "D", "AEP"},
	"Real Estate":            {"PLD", "AMT", "EQIX", "SPG", "O"},
	"Basic Materials":        {"LIN", "APD", "SHW", "ECL", "NEM"},
}

// sectorPEFallback is used when no peer P/E can be fetched.
var sectorPEFallback = map[string]float64{
	"Technology":             28.0,
	"Communication Services": 22.0,
	"Consumer Cyclical":      25.0,
	"Consumer Defensive":     22.0,
	"Financial Services":     14.0,
	"Healthcare":             20.0,
	"Energy":                 12.0,
	"Industrials":            20.0,
	"Utilities":              18.0,
	"Real Estate":            30.0,
	"Basic Materials":        16.0,
}
