package portfolio

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/models"
)

func TestWeightedAverage(t *testing.T) {
	avg := WeightedAverage(d("10"), d("150"), d("10"), d("160"))
	assert.True(t, avg.Equal(d("155")), "got %s", avg)

	assert.True(t, WeightedAverage(decimal.Zero, decimal.Zero, decimal.Zero, d("10")).IsZero())
}

func TestApplyBuyToPosition_OrderDoesNotMatter(t *testing.T) {
	type lot struct{ qty, price string }
	cases := map[string][]lot{
		"terminating": {{"10", "150"}, {"5", "162.5"}, {"7", "141.25"}, {"3", "199.99"}},
		// 29/7 repeats, so every intermediate average is inexact
		"repeating": {{"1", "1"}, {"2", "2"}, {"1", "3"}, {"3", "7"}},
	}
	orders := [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {1, 3, 0, 2}, {2, 0, 3, 1}, {0, 3, 1, 2}}

	for name, lots := range cases {
		t.Run(name, func(t *testing.T) {
			cost := decimal.Zero
			totalQty := decimal.Zero
			for _, l := range lots {
				cost = cost.Add(d(l.qty).Mul(d(l.price)))
				totalQty = totalQty.Add(d(l.qty))
			}
			want := cost.DivRound(totalQty, PricePlaces)

			for _, order := range orders {
				var p models.Position
				for _, i := range order {
					p = ApplyBuyToPosition(p, d(lots[i].qty), d(lots[i].price), time.Now())
				}
				assert.True(t, p.Quantity.Equal(totalQty), "order %v quantity %s", order, p.Quantity)
				got := RoundPrice(p.PurchasePrice)
				assert.True(t, got.Equal(want), "order %v avg %s want %s", order, got, want)
			}
		})
	}
}

func TestWeightedAverage_RepeatingFraction(t *testing.T) {
	// 1@1, 2@2, 1@3, 3@7 = 29/7
	forward := WeightedAverage(d("4"), WeightedAverage(d("3"), WeightedAverage(d("1"), d("1"), d("2"), d("2")), d("1"), d("3")), d("3"), d("7"))
	reverse := WeightedAverage(d("6"), WeightedAverage(d("4"), WeightedAverage(d("3"), d("7"), d("1"), d("3")), d("2"), d("2")), d("1"), d("1"))

	assert.Equal(t, "4.14285714", RoundPrice(forward).String())
	assert.Equal(t, "4.14285714", RoundPrice(reverse).String())
}

func TestApplyBuyToPosition_WatchOnlyBecomesOwned(t *testing.T) {
	added := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bought := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	watch := models.Position{Symbol: "TSLA", PurchaseDate: added}

	p := ApplyBuyToPosition(watch, d("3"), d("250"), bought)

	assert.True(t, p.Quantity.Equal(d("3")))
	assert.True(t, p.PurchasePrice.Equal(d("250")))
	assert.Equal(t, bought, p.PurchaseDate)
}

func TestApplyBuyToPosition_KeepsFirstPurchaseDate(t *testing.T) {
	first := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	p := models.Position{Quantity: d("1"), PurchasePrice: d("100"), PurchaseDate: first}

	p = ApplyBuyToPosition(p, d("1"), d("200"), first.AddDate(1, 0, 0))

	assert.Equal(t, first, p.PurchaseDate)
	assert.True(t, p.PurchasePrice.Equal(d("150")))
}

func TestApplySellToPosition(t *testing.T) {
	p := models.Position{ID: 7, Symbol: "AAPL", Quantity: d("20"), PurchasePrice: d("155")}

	remaining, closed, err := ApplySellToPosition(p, d("5"))
	require.NoError(t, err)
	assert.False(t, closed)
	assert.True(t, remaining.Quantity.Equal(d("15")))
	assert.True(t, remaining.PurchasePrice.Equal(d("155")), "average cost unchanged")

	_, closed, err = ApplySellToPosition(remaining, d("15"))
	require.NoError(t, err)
	assert.True(t, closed)

	_, _, err = ApplySellToPosition(remaining, d("15.5"))
	var insufficient *InsufficientSharesError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, int64(7), insufficient.PositionID)
	assert.True(t, insufficient.Requested.Equal(d("15.5")))
	assert.True(t, insufficient.Available.Equal(d("15")))
	assert.Contains(t, err.Error(), "You own 15, trying to sell 15.5")
}

func TestApplySellToPosition_WatchOnly(t *testing.T) {
	_, _, err := ApplySellToPosition(models.Position{Symbol: "TSLA"}, d("1"))
	var insufficient *InsufficientSharesError
	assert.True(t, errors.As(err, &insufficient))
}

func TestReplay_RealizedGain(t *testing.T) {
	day := func(n int) time.Time { return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC) }
	txs := []models.Transaction{
		// deliberately out of order
		{ID: 3, Symbol: "AAPL", Type: models.TransactionSell, Quantity: d("5"), Price: d("170"), Date: day(3)},
		{ID: 1, Symbol: "AAPL", Type: models.TransactionBuy, Quantity: d("10"), Price: d("150"), Date: day(1)},
		{ID: 2, Symbol: "AAPL", Type: models.TransactionBuy, Quantity: d("10"), Price: d("160"), Date: day(2)},
		{ID: 4, Symbol: "AAPL", Type: models.TransactionSell, Quantity: d("15"), Price: d("180"), Date: day(4)},
	}

	h, err := Replay(txs)
	require.NoError(t, err)

	// (170-155)*5 + (180-155)*15
	assert.True(t, h.RealizedGainLoss.Equal(d("450")), "got %s", h.RealizedGainLoss)
	assert.True(t, h.Quantity.IsZero())
	assert.Equal(t, 2, h.Buys)
	assert.Equal(t, 2, h.Sells)
}

func TestReplay_Errors(t *testing.T) {
	_, err := Replay([]models.Transaction{
		{Symbol: "AAPL", Type: models.TransactionSell, Quantity: d("1"), Price: d("1")},
	})
	var insufficient *InsufficientSharesError
	assert.True(t, errors.As(err, &insufficient))

	_, err = Replay([]models.Transaction{
		{Symbol: "AAPL", Type: models.TransactionBuy, Quantity: d("1"), Price: d("1")},
		{Symbol: "MSFT", Type: models.TransactionBuy, Quantity: d("1"), Price: d("1")},
	})
	assert.Error(t, err)
}

func TestReplayAll_GroupsBySymbolAndList(t *testing.T) {
	listA, listB := int64(1), int64(2)
	txs := []models.Transaction{
		{Symbol: "MSFT", ListID: &listA, Type: models.TransactionBuy, Quantity: d("1"), Price: d("300")},
		{Symbol: "AAPL", ListID: &listA, Type: models.TransactionBuy, Quantity: d("2"), Price: d("100")},
		{Symbol: "AAPL", ListID: &listB, Type: models.TransactionBuy, Quantity: d("4"), Price: d("200")},
		{Symbol: "IBM", Type: models.TransactionSell, Quantity: d("1"), Price: d("1")},
	}

	holdings, failed := ReplayAll(txs)

	require.Len(t, holdings, 3)
	assert.Equal(t, "AAPL", holdings[0].Symbol)
	assert.True(t, holdings[0].AverageCost.Equal(d("100")))
	assert.True(t, holdings[1].AverageCost.Equal(d("200")))
	assert.Equal(t, "MSFT", holdings[2].Symbol)
	require.Len(t, failed, 1)
	assert.Equal(t, "IBM", failed[0].Symbol)
	assert.Nil(t, failed[0].ListID)
}

func TestReplayAll_FailuresKeptPerList(t *testing.T) {
	listA, listB := int64(1), int64(2)
	txs := []models.Transaction{
		{ID: 1, Symbol: "AAPL", ListID: &listA, Type: models.TransactionSell, Quantity: d("1"), Price: d("100")},
		{ID: 2, Symbol: "AAPL", ListID: &listB, Type: models.TransactionSell, Quantity: d("2"), Price: d("100")},
	}

	holdings, failed := ReplayAll(txs)

	assert.Empty(t, holdings)
	require.Len(t, failed, 2)
	for i, listID := range []int64{listA, listB} {
		assert.Equal(t, "AAPL", failed[i].Symbol)
		require.NotNil(t, failed[i].ListID)
		assert.Equal(t, listID, *failed[i].ListID)
		var insufficient *InsufficientSharesError
		assert.ErrorAs(t, failed[i].Err, &insufficient)
	}
}
