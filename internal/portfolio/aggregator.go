package portfolio

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/models"
)

const (
	// PricePlaces is the scale of trade prices and reported averages.
	PricePlaces = 8
	// averagePlaces is the scale an average cost is carried at between buys
	// (positions.purchase_price is NUMERIC(32, 20)). Holdings reports round
	// to PricePlaces.
	averagePlaces = 20
)

// WeightedAverage returns (oldQty*oldAvg + addQty*addPrice) / (oldQty+addQty)
// at averagePlaces, so any order of buys reports the same average at PricePlaces.
func WeightedAverage(oldQty, oldAvg, addQty, addPrice decimal.Decimal) decimal.Decimal {
	total := oldQty.Add(addQty)
	if !total.IsPositive() {
		return decimal.Zero
	}
	return oldQty.Mul(oldAvg).Add(addQty.Mul(addPrice)).DivRound(total, averagePlaces)
}

// RoundPrice rounds an average cost to PricePlaces.
func RoundPrice(v decimal.Decimal) decimal.Decimal {
	return v.Round(PricePlaces)
}

// ApplyBuyToPosition folds a buy into p. A watch-only entry becomes owned at
// the buy's price and date; an owned one keeps its first purchase date.
func ApplyBuyToPosition(p models.Position, qty, price decimal.Decimal, date time.Time) models.Position {
	if p.IsWatchOnly() {
		p.Quantity = qty
		p.PurchasePrice = price
		p.PurchaseDate = date
		return p
	}
	p.PurchasePrice = WeightedAverage(p.Quantity, p.PurchasePrice, qty, price)
	p.Quantity = p.Quantity.Add(qty)
	return p
}

// ApplySellToPosition removes qty shares from p. The average cost is left
// untouched; closed reports that nothing remains.
func ApplySellToPosition(p models.Position, qty decimal.Decimal) (remaining models.Position, closed bool, err error) {
	if qty.GreaterThan(p.Quantity) {
		return p, false, &InsufficientSharesError{
			PositionID: p.ID,
			Symbol:     p.Symbol,
			Requested:  qty,
			Available:  p.Quantity,
		}
	}
	p.Quantity = p.Quantity.Sub(qty)
	return p, p.Quantity.IsZero(), nil
}

// Holding is a position rebuilt from its transaction history.
type Holding struct {
	Symbol           string          `json:"symbol"`
	ListID           *int64          `json:"listId,omitempty"`
	Quantity         decimal.Decimal `json:"quantity"`
	AverageCost      decimal.Decimal `json:"averageCost"`
	FirstPurchase    time.Time       `json:"firstPurchase"`
	RealizedGainLoss decimal.Decimal `json:"realizedGainLoss"`
	Buys             int             `json:"buys"`
	Sells            int             `json:"sells"`
}

// Replay rebuilds a single symbol's holding from its transactions in date order.
// Realized gain is (sell price - average cost at the time) * sold quantity.
func Replay(txs []models.Transaction) (Holding, error) {
	ordered := make([]models.Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].ID < ordered[j].ID
	})

	var h Holding
	for _, t := range ordered {
		if h.Symbol == "" {
			h.Symbol = t.Symbol
			h.ListID = t.ListID
		}
		if t.Symbol != h.Symbol {
			return Holding{}, fmt.Errorf("replay: mixed symbols %s and %s", h.Symbol, t.Symbol)
		}

		switch t.Type {
		case models.TransactionBuy:
			if h.Quantity.IsZero() {
				h.FirstPurchase = t.Date
				h.AverageCost = t.Price
			} else {
				h.AverageCost = WeightedAverage(h.Quantity, h.AverageCost, t.Quantity, t.Price)
			}
			h.Quantity = h.Quantity.Add(t.Quantity)
			h.Buys++
		case models.TransactionSell:
			if t.Quantity.GreaterThan(h.Quantity) {
				return Holding{}, &InsufficientSharesError{
					Symbol:    t.Symbol,
					Requested: t.Quantity,
					Available: h.Quantity,
				}
			}
			h.RealizedGainLoss = h.RealizedGainLoss.Add(t.Price.Sub(h.AverageCost).Mul(t.Quantity))
			h.Quantity = h.Quantity.Sub(t.Quantity)
			if h.Quantity.IsZero() {
				h.AverageCost = decimal.Zero
				h.FirstPurchase = time.Time{}
			}
			h.Sells++
		default:
			return Holding{}, fmt.Errorf("replay: unknown transaction type %q", t.Type)
		}
	}
	return h, nil
}

type holdingKey struct {
	symbol string
	listID int64
}

// ReplayFailure is a (symbol, list) group whose history does not replay.
type ReplayFailure struct {
	Symbol string
	ListID *int64
	Err    error
}

// ReplayAll groups transactions by symbol and list and replays each group.
// Groups whose history cannot be replayed are returned in failed, in the
// same order as holdings.
func ReplayAll(txs []models.Transaction) (holdings []Holding, failed []ReplayFailure) {
	groups := make(map[holdingKey][]models.Transaction)
	lists := make(map[holdingKey]*int64)
	var keys []holdingKey
	for _, t := range txs {
		k := holdingKey{symbol: t.Symbol}
		if t.ListID != nil {
			k.listID = *t.ListID
			lists[k] = t.ListID
		}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], t)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].symbol != keys[j].symbol {
			return keys[i].symbol < keys[j].symbol
		}
		return keys[i].listID < keys[j].listID
	})

	for _, k := range keys {
		h, err := Replay(groups[k])
		if err != nil {
			failed = append(failed, ReplayFailure{Symbol: k.symbol, ListID: lists[k], Err: err})
			continue
		}
		holdings = append(holdings, h)
	}
	return holdings, failed
}
