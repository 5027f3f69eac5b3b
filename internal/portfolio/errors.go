package portfolio

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/store"
)

var (
	// ErrNotFound is returned when a user, list or position does not exist
	// or belongs to someone else.
	ErrNotFound = store.ErrNotFound

	ErrDefaultListDelete = errors.New("the default list cannot be deleted")
	ErrDuplicateListName = errors.New("a list with this name already exists")
	ErrDuplicateUser     = errors.New("username or email already registered")
	ErrPositionHasShares = errors.New("position still holds shares, sell them first")
)

// ValidationError rejects a request before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientSharesError is returned when a sell exceeds the position's quantity.
type InsufficientSharesError struct {
	PositionID int64
	Symbol     string
	Requested  decimal.Decimal
	Available  decimal.Decimal
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("Insufficient shares in position %d (%s). You own %s, trying to sell %s",
		e.PositionID, e.Symbol, e.Available, e.Requested)
}
