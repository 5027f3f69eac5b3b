package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is either "buy" or "sell"
type TransactionType string

const (
	TransactionBuy  TransactionType = "buy"
	TransactionSell TransactionType = "sell"
)

// Transaction represents an immutable buy/sell record
type Transaction struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"userId"`
	PositionID *int64          `json:"positionId,omitempty"`
	ListID     *int64          `json:"listId,omitempty"`
	Symbol     string          `json:"symbol"`
	Type       TransactionType `json:"type"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Fees       decimal.Decimal `json:"fees"`
	Date       time.Time       `json:"date"`
	Notes      string          `json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Total is quantity * price, fees excluded.
func (t Transaction) Total() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

// BuyRequest - what client sends to buy stocks
type BuyRequest struct {
	UserID   int64      `json:"userId" binding:"required"`
	ListID   *int64     `json:"listId"`
	Symbol   string     `json:"symbol" binding:"required"`
	Quantity float64    `json:"quantity" binding:"required,gt=0"`
	Price    float64    `json:"price" binding:"required,gt=0"`
	Fees     float64    `json:"fees" binding:"gte=0"`
	Date     *time.Time `json:"date"`
	Notes    string     `json:"notes"`
}

// SellRequest - what client sends to sell part or all of a position
type SellRequest struct {
	UserID     int64      `json:"userId" binding:"required"`
	PositionID int64      `json:"positionId" binding:"required"`
	Quantity   float64    `json:"quantity" binding:"required,gt=0"`
	Price      float64    `json:"price" binding:"required,gt=0"`
	Fees       float64    `json:"fees" binding:"gte=0"`
	Date       *time.Time `json:"date"`
	Notes      string     `json:"notes"`
}
