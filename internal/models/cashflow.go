package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashFlowType is the direction of a cash movement
type CashFlowType string

const (
	CashDeposit    CashFlowType = "deposit"
	CashWithdrawal CashFlowType = "withdrawal"
)

// Valid reports whether t is a known cash flow type.
func (t CashFlowType) Valid() bool {
	return t == CashDeposit || t == CashWithdrawal
}

// CashFlow represents a deposit into or withdrawal out of a list
type CashFlow struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"userId"`
	ListID    *int64          `json:"listId,omitempty"`
	Type      CashFlowType    `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// CashFlowRequest - record a deposit or withdrawal
type CashFlowRequest struct {
	ListID *int64       `json:"listId"`
	Type   CashFlowType `json:"type" binding:"required,oneof=deposit withdrawal"`
	Amount float64      `json:"amount" binding:"required,gt=0"`
	Date   *time.Time   `json:"date"`
	Notes  string       `json:"notes"`
}
