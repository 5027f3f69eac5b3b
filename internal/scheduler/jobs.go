package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/marketdata"
)

// Purger drops expired cache entries; *marketdata.Provider satisfies it.
type Purger interface {
	PurgeExpired() int
}

// CachePurgeJob removes stale quotes and sector P/E values.
type CachePurgeJob struct {
	cache Purger
	log   zerolog.Logger
}

// NewCachePurgeJob creates the purge job
func NewCachePurgeJob(cache Purger, log zerolog.Logger) *CachePurgeJob {
	return &CachePurgeJob{cache: cache, log: log}
}

func (j *CachePurgeJob) Name() string { return "cache_purge" }

func (j *CachePurgeJob) Run() error {
	n := j.cache.PurgeExpired()
	j.log.Debug().Int("removed", n).Msg("Expired cache entries purged")
	return nil
}

// SymbolSource lists every symbol held or watched by any user.
type SymbolSource interface {
	DistinctSymbols(ctx context.Context) ([]string, error)
}

// QuoteLoader fetches quotes in bulk; *marketdata.Provider satisfies it.
type QuoteLoader interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]marketdata.Quote, map[string]error)
}

// QuoteWarmJob refreshes the quote cache for every tracked symbol so that
// summaries are served from cache.
type QuoteWarmJob struct {
	symbols SymbolSource
	quotes  QuoteLoader
	timeout time.Duration
	log     zerolog.Logger
}

// NewQuoteWarmJob creates the warm-up job
func NewQuoteWarmJob(symbols SymbolSource, quotes QuoteLoader, timeout time.Duration, log zerolog.Logger) *QuoteWarmJob {
	return &QuoteWarmJob{symbols: symbols, quotes: quotes, timeout: timeout, log: log}
}

func (j *QuoteWarmJob) Name() string { return "quote_warm" }

func (j *QuoteWarmJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	symbols, err := j.symbols.DistinctSymbols(ctx)
	if err != nil {
		return fmt.Errorf("list symbols: %w", err)
	}
	if len(symbols) == 0 {
		return nil
	}

	quotes, errs := j.quotes.GetQuotes(ctx, symbols)
	j.log.Info().
		Int("symbols", len(symbols)).
		Int("refreshed", len(quotes)).
		Int("failed", len(errs)).
		Msg("Quote cache warmed")
	return nil
}
