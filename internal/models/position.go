package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position represents a symbol held (or watched) by a user.
// A zero quantity marks a watch-only entry: PurchasePrice and PurchaseDate
// carry no meaning in that state.
type Position struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"userId"`
	ListID        *int64          `json:"listId,omitempty"`
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	PurchaseDate  time.Time       `json:"purchaseDate"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// IsWatchOnly reports whether the position is a watchlist entry with no shares.
func (p Position) IsWatchOnly() bool {
	return p.Quantity.IsZero()
}

// CostBasis is quantity * average purchase price.
func (p Position) CostBasis() decimal.Decimal {
	if p.IsWatchOnly() {
		return decimal.Zero
	}
	return p.Quantity.Mul(p.PurchasePrice)
}

// SameList reports whether two optional list references point at the same list.
func SameList(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// WatchRequest - add a symbol to a list without buying it
type WatchRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	ListID *int64 `json:"listId"`
}
