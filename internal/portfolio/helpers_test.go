package portfolio

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/logger"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/marketdata"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/models"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/store"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func f(v float64) *float64 { return &v }

// fakeQuotes serves fixed quotes; unknown symbols are unavailable.
type fakeQuotes struct {
	quotes map[string]marketdata.Quote
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{quotes: map[string]marketdata.Quote{}}
}

func (fq *fakeQuotes) set(symbol string, price float64) *marketdata.Quote {
	q := marketdata.Quote{Symbol: symbol, CurrentPrice: price, Source: marketdata.SourceLive, FetchedAt: testNow}
	fq.quotes[symbol] = q
	return &q
}

func (fq *fakeQuotes) GetQuote(_ context.Context, symbol string) (marketdata.Quote, error) {
	q, ok := fq.quotes[symbol]
	if !ok {
		return marketdata.Quote{}, fmt.Errorf("%w: %s", marketdata.ErrQuoteUnavailable, symbol)
	}
	return q, nil
}

func (fq *fakeQuotes) GetQuotes(ctx context.Context, symbols []string) (map[string]marketdata.Quote, map[string]error) {
	out := map[string]marketdata.Quote{}
	errs := map[string]error{}
	for _, s := range symbols {
		q, err := fq.GetQuote(ctx, s)
		if err != nil {
			errs[s] = err
			continue
		}
		out[s] = q
	}
	return out, errs
}

type fixture struct {
	svc    *Service
	st     *store.Memory
	quotes *fakeQuotes
	user   models.User
	list   models.List
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemory()
	quotes := newFakeQuotes()
	svc := NewService(st, quotes, logger.Nop(), WithNow(func() time.Time { return testNow }), WithBcryptCost(4))

	user, list, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	return &fixture{svc: svc, st: st, quotes: quotes, user: user, list: list}
}

func (fx *fixture) buy(t *testing.T, symbol, qty, price string, date time.Time) models.Position {
	t.Helper()
	pos, _, err := fx.svc.ApplyBuy(context.Background(), BuyInput{
		UserID:   fx.user.ID,
		Symbol:   symbol,
		Quantity: d(qty),
		Price:    d(price),
		Date:     date,
	})
	require.NoError(t, err)
	return pos
}

func (fx *fixture) sell(t *testing.T, positionID int64, qty, price string) models.Transaction {
	t.Helper()
	txn, err := fx.svc.ApplySell(context.Background(), SellInput{
		UserID:     fx.user.ID,
		PositionID: positionID,
		Quantity:   d(qty),
		Price:      d(price),
	})
	require.NoError(t, err)
	return txn
}

// owned builds a valued position held since purchased.
func owned(symbol string, qty, cost float64, purchased time.Time, q *marketdata.Quote) ValuedPosition {
	p := models.Position{
		Symbol:        symbol,
		Quantity:      decimal.NewFromFloat(qty),
		PurchasePrice: decimal.NewFromFloat(cost),
		PurchaseDate:  purchased,
	}
	return NewValuedPosition(p, q)
}

func watched(symbol string, q *marketdata.Quote) ValuedPosition {
	return NewValuedPosition(models.Position{Symbol: symbol}, q)
}

func quoteAt(symbol string, price float64) *marketdata.Quote {
	return &marketdata.Quote{Symbol: symbol, CurrentPrice: price, Source: marketdata.SourceLive}
}
