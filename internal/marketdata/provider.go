package marketdata

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Per-call upstream timeouts. Supplementary data gets less time than the price.
const (
	DefaultPriceTimeout        = 10 * time.Second
	DefaultFundamentalsTimeout = 5 * time.Second
	DefaultHistoryTimeout      = 8 * time.Second
	DefaultQuoteConcurrency    = 8
)

// Provider serves quotes from a TTL cache, refreshing from the Fetcher on a
// miss and optionally falling back to synthetic values.
type Provider struct {
	fetcher  Fetcher
	quotes   *TTLCache[string, Quote]
	sectorPE *TTLCache[string, float64]
	inflight singleflight.Group
	log      zerolog.Logger
	now      func() time.Time

	syntheticFallback   bool
	priceTimeout        time.Duration
	fundamentalsTimeout time.Duration
	historyTimeout      time.Duration
	concurrency         int
}

// Option configures the provider
type Option func(*Provider)

// WithSyntheticFallback enables static fallback quotes when the upstream fails.
func WithSyntheticFallback(enabled bool) Option {
	return func(p *Provider) { p.syntheticFallback = enabled }
}

// WithClock overrides time.Now for the provider and the caches it creates.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithQuoteCache injects the quote cache.
func WithQuoteCache(c *TTLCache[string, Quote]) Option {
	return func(p *Provider) { p.quotes = c }
}

// WithSectorPECache injects the sector P/E cache.
func WithSectorPECache(c *TTLCache[string, float64]) Option {
	return func(p *Provider) { p.sectorPE = c }
}

// WithTimeouts sets the per-call upstream timeouts; zero keeps the default.
func WithTimeouts(price, fundamentals, history time.Duration) Option {
	return func(p *Provider) {
		if price > 0 {
			p.priceTimeout = price
		}
		if fundamentals > 0 {
			p.fundamentalsTimeout = fundamentals
		}
		if history > 0 {
			p.historyTimeout = history
		}
	}
}

// WithConcurrency bounds GetQuotes fan-out.
func WithConcurrency(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewProvider creates a provider over fetcher.
func NewProvider(fetcher Fetcher, log zerolog.Logger, opts ...Option) *Provider {
	p := &Provider{
		fetcher:             fetcher,
		log:                 log.With().Str("component", "marketdata").Logger(),
		now:                 time.Now,
		priceTimeout:        DefaultPriceTimeout,
		fundamentalsTimeout: DefaultFundamentalsTimeout,
		historyTimeout:      DefaultHistoryTimeout,
		concurrency:         DefaultQuoteConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.quotes == nil {
		p.quotes = NewTTLCache[string, Quote](QuoteTTL, p.now)
	}
	if p.sectorPE == nil {
		p.sectorPE = NewTTLCache[string, float64](SectorPETTL, p.now)
	}
	return p
}

// NormalizeSymbol upper-cases and trims a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// GetQuote returns a fresh quote for symbol. It fails with
// ErrQuoteUnavailable only when the live fetch and the fallback both fail.
func (p *Provider) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return Quote{}, fmt.Errorf("%w: empty symbol", ErrQuoteUnavailable)
	}

	if q, ok := p.quotes.Get(symbol); ok {
		return q.clone(), nil
	}

	// The shared fetch outlives any one caller; each caller stops waiting
	// when its own context ends.
	fetchCtx := context.WithoutCancel(ctx)
	ch := p.inflight.DoChan("quote:"+symbol, func() (interface{}, error) {
		if q, ok := p.quotes.Get(symbol); ok {
			return q, nil
		}

		q, err := p.fetchLive(fetchCtx, symbol)
		if err == nil {
			p.quotes.Set(symbol, q.clone())
			return q, nil
		}
		return p.fallback(symbol, err)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Quote{}, res.Err
		}
		return res.Val.(Quote).clone(), nil
	case <-ctx.Done():
		return Quote{}, fmt.Errorf("%w: %s: %w", ErrQuoteUnavailable, symbol, ctx.Err())
	}
}

// GetQuotes fetches several symbols with bounded concurrency. Symbols that
// failed are reported in the error map and absent from the quote map.
func (p *Provider) GetQuotes(ctx context.Context, symbols []string) (map[string]Quote, map[string]error) {
	quotes := make(map[string]Quote, len(symbols))
	failures := make(map[string]error)

	seen := make(map[string]bool, len(symbols))
	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)

	for _, s := range symbols {
		symbol := NormalizeSymbol(s)
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true

		g.Go(func() error {
			q, err := p.GetQuote(ctx, symbol)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[symbol] = err
				return nil
			}
			quotes[symbol] = q
			return nil
		})
	}
	_ = g.Wait()

	return quotes, failures
}

// PurgeExpired removes stale entries from both caches.
func (p *Provider) PurgeExpired() int {
	return p.quotes.PurgeExpired() + p.sectorPE.PurgeExpired()
}

func (p *Provider) fetchLive(ctx context.Context, symbol string) (Quote, error) {
	priceCtx, cancel := context.WithTimeout(ctx, p.priceTimeout)
	live, err := p.fetcher.FetchLivePrice(priceCtx, symbol)
	cancel()
	if err != nil {
		return Quote{}, fmt.Errorf("fetch price: %w", err)
	}

	q := Quote{
		Symbol:           symbol,
		Name:             live.Name,
		Currency:         live.Currency,
		CurrentPrice:     live.Price,
		PreviousClose:    live.PreviousClose,
		Volume:           live.Volume,
		FiftyTwoWeekHigh: positive(live.FiftyTwoWeekHigh),
		FiftyTwoWeekLow:  positive(live.FiftyTwoWeekLow),
		Source:           SourceLive,
		FetchedAt:        p.now(),
	}
	if live.PreviousClose > 0 {
		q.Change = live.Price - live.PreviousClose
		q.ChangePercent = q.Change / live.PreviousClose * 100
	}

	var (
		fund    Fundamentals
		fundErr error
		history = make(map[int][]float64, 3)
		histMu  sync.Mutex
		g       errgroup.Group
		windows = []int{Range6Month, Range1Year, Range3Year}
	)

	g.Go(func() error {
		fctx, cancel := context.WithTimeout(ctx, p.fundamentalsTimeout)
		defer cancel()
		fund, fundErr = p.fetcher.FetchFundamentals(fctx, symbol)
		return nil
	})
	for _, days := range windows {
		days := days
		g.Go(func() error {
			hctx, cancel := context.WithTimeout(ctx, p.historyTimeout)
			defer cancel()
			closes, err := p.fetcher.FetchHistoricalCloses(hctx, symbol, days)
			if err != nil {
				p.log.Debug().Err(err).Str("symbol", symbol).Int("days", days).Msg("History unavailable")
				return nil
			}
			histMu.Lock()
			history[days] = cleanCloses(closes)
			histMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if fundErr != nil {
		p.log.Warn().Err(fundErr).Str("symbol", symbol).Msg("Fundamentals unavailable, omitting")
	} else {
		q.MarketCap = positive(fund.MarketCap)
		q.PERatio = positive(fund.PERatio)
		q.ForwardPE = positive(fund.ForwardPE)
		q.EPS = nonZero(fund.EPS)
		q.DividendYield = positive(fund.DividendYield)
		q.Beta = nonZero(fund.Beta)
		q.Sector = fund.Sector
		q.Industry = fund.Industry
		if q.Sector != "" {
			q.SectorAveragePE = p.SectorAveragePE(ctx, q.Sector)
		}
	}

	q.MovingAverage50Day = movingAverage50(history[Range6Month])
	q.PercentChange6Month = percentChange(history[Range6Month], minPoints6Month)
	q.PercentChange1Year = percentChange(history[Range1Year], minPoints1Year)
	q.PercentChange3Year = percentChange(history[Range3Year], minPoints3Year)

	return q, nil
}

// SectorAveragePE averages the P/E of a sector's peer symbols, cached per
// sector. Falls back to a static table when no peer data is available and
// returns nil for unknown sectors.
func (p *Provider) SectorAveragePE(ctx context.Context, sector string) *float64 {
	if v, ok := p.sectorPE.Get(sector); ok {
		return floatPtr(v)
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := p.inflight.DoChan("sector:"+sector, func() (interface{}, error) {
		peers := sectorPeers[sector]
		pes := make([]float64, len(peers))

		var g errgroup.Group
		for i, peer := range peers {
			i, peer := i, peer
			g.Go(func() error {
				fctx, cancel := context.WithTimeout(fetchCtx, p.fundamentalsTimeout)
				defer cancel()
				f, err := p.fetcher.FetchFundamentals(fctx, peer)
				if err == nil && f.PERatio > 0 {
					pes[i] = f.PERatio
				}
				return nil
			})
		}
		_ = g.Wait()

		var sum float64
		n := 0
		for _, pe := range pes {
			if pe > 0 {
				sum += pe
				n++
			}
		}
		if n > 0 {
			avg := sum / float64(n)
			p.sectorPE.Set(sector, avg)
			return avg, nil
		}
		if fb, ok := sectorPEFallback[sector]; ok {
			return fb, nil
		}
		return 0.0, nil
	})

	select {
	case res := <-ch:
		if avg := res.Val.(float64); avg > 0 {
			return floatPtr(avg)
		}
		return nil
	case <-ctx.Done():
		return nil
	}
}

func (p *Provider) fallback(symbol string, cause error) (Quote, error) {
	if !p.syntheticFallback {
		p.log.Warn().Err(cause).Str("symbol", symbol).Msg("Quote fetch failed")
		return Quote{}, fmt.Errorf("%w: %s: %w", ErrQuoteUnavailable, symbol, cause)
	}

	q, ok := syntheticQuote(symbol, p.now())
	if !ok {
		p.log.Warn().Err(cause).Str("symbol", symbol).Msg("Quote fetch failed, no synthetic values")
		return Quote{}, fmt.Errorf("%w: %s: %w", ErrQuoteUnavailable, symbol, cause)
	}

	p.log.Warn().Err(cause).Str("symbol", symbol).Msg("Serving synthetic quote")
	return q, nil
}
