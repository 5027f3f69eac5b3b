package marketdata

import (
	"context"
	"errors"
	"sync"
)

var errUpstreamDown = errors.New("upstream down")

// fakeFetcher is an in-memory Fetcher that counts calls per symbol.
type fakeFetcher struct {
	mu sync.Mutex

	prices       map[string]LivePrice
	fundamentals map[string]Fundamentals
	history      map[string]map[int][]float64

	priceErr        error
	fundamentalsErr error

	// when set, FetchLivePrice signals priceStarted and holds until
	// priceGate is closed or its context ends
	priceGate    chan struct{}
	priceStarted chan struct{}

	priceCalls        map[string]int
	fundamentalsCalls map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		prices:            map[string]LivePrice{},
		fundamentals:      map[string]Fundamentals{},
		history:           map[string]map[int][]float64{},
		priceCalls:        map[string]int{},
		fundamentalsCalls: map[string]int{},
	}
}

func (f *fakeFetcher) FetchLivePrice(ctx context.Context, symbol string) (LivePrice, error) {
	f.mu.Lock()
	f.priceCalls[symbol]++
	gate, started := f.priceGate, f.priceStarted
	f.mu.Unlock()

	if gate != nil {
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return LivePrice{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.priceErr != nil {
		return LivePrice{}, f.priceErr
	}
	p, ok := f.prices[symbol]
	if !ok {
		return LivePrice{}, ErrNoResult
	}
	return p, nil
}

func (f *fakeFetcher) FetchFundamentals(_ context.Context, symbol string) (Fundamentals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fundamentalsCalls[symbol]++
	if f.fundamentalsErr != nil {
		return Fundamentals{}, f.fundamentalsErr
	}
	fd, ok := f.fundamentals[symbol]
	if !ok {
		return Fundamentals{}, ErrNoResult
	}
	return fd, nil
}

func (f *fakeFetcher) FetchHistoricalCloses(_ context.Context, symbol string, rangeDays int) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	closes, ok := f.history[symbol][rangeDays]
	if !ok {
		return nil, ErrNoResult
	}
	return closes, nil
}

func (f *fakeFetcher) setHistory(symbol string, rangeDays int, closes []float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.history[symbol] == nil {
		f.history[symbol] = map[int][]float64{}
	}
	f.history[symbol][rangeDays] = closes
}

func (f *fakeFetcher) calls(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.priceCalls[symbol]
}

// series returns n closes rising linearly from start by step.
func series(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
