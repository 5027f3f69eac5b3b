// Package store persists users, lists, positions, transactions and cash flows.
package store

import (
	"context"
	"errors"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/models"
)

var (
	// ErrNotFound is returned when a row does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned on a unique constraint violation.
	ErrDuplicate = errors.New("duplicate")
)

// TransactionFilter narrows FindTransactions.
type TransactionFilter struct {
	Symbol string
	ListID *int64
	Limit  int // 0 means no limit
}

// Store is the persistence collaborator. Implementations must make every
// call made through the Store handed to WithinTx part of one atomic unit.
type Store interface {
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	GetUser(ctx context.Context, userID int64) (models.User, error)
	DeleteUser(ctx context.Context, userID int64) error

	CreateList(ctx context.Context, l models.List) (models.List, error)
	GetList(ctx context.Context, userID, listID int64) (models.List, error)
	FindLists(ctx context.Context, userID int64) ([]models.List, error)
	RenameList(ctx context.Context, userID, listID int64, name string) (models.List, error)
	SetDefaultList(ctx context.Context, userID, listID int64) error
	DeleteList(ctx context.Context, userID, listID int64) error
	// ReassignList moves transactions and cash flows from one list to another.
	ReassignList(ctx context.Context, userID, fromListID int64, toListID *int64) error

	FindPositionsByUser(ctx context.Context, userID int64, listID *int64) ([]models.Position, error)
	FindPosition(ctx context.Context, userID, positionID int64) (models.Position, error)
	FindOpenPosition(ctx context.Context, userID int64, symbol string, listID *int64) (models.Position, error)
	UpsertPosition(ctx context.Context, p models.Position) (models.Position, error)
	DeletePosition(ctx context.Context, userID, positionID int64) error
	DistinctSymbols(ctx context.Context) ([]string, error)

	InsertTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error)
	FindTransactions(ctx context.Context, userID int64, f TransactionFilter) ([]models.Transaction, error)

	InsertCashFlow(ctx context.Context, c models.CashFlow) (models.CashFlow, error)
	FindCashFlows(ctx context.Context, userID int64, listID *int64) ([]models.CashFlow, error)

	WithinTx(ctx context.Context, fn func(Store) error) error
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Postgres)(nil)
)
