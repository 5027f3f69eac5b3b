package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/models"
)

var errBoom = errors.New("boom")

func newUser(t *testing.T, s Store, name string) models.User {
	t.Helper()
	name = fmt.Sprintf("test_%s_%d", name, time.Now().UnixNano())
	u, err := s.CreateUser(context.Background(), models.User{
		Username:     name,
		Email:        name + "@test.com",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	return u
}

func idPtr(id int64) *int64 { return &id }

// runContract exercises behaviour both implementations must share.
func runContract(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("duplicate username", func(t *testing.T) {
		s := open(t)
		u := newUser(t, s, "dup")
		_, err := s.CreateUser(ctx, models.User{Username: u.Username, Email: "other" + u.Email, PasswordHash: "x"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("list names are unique per user", func(t *testing.T) {
		s := open(t)
		u := newUser(t, s, "lists")
		_, err := s.CreateList(ctx, models.List{UserID: u.ID, Name: "Growth"})
		require.NoError(t, err)
		_, err = s.CreateList(ctx, models.List{UserID: u.ID, Name: "growth"})
		assert.ErrorIs(t, err, ErrDuplicate)

		other := newUser(t, s, "lists2")
		_, err = s.CreateList(ctx, models.List{UserID: other.ID, Name: "Growth"})
		assert.NoError(t, err)
	})

	t.Run("set default moves the flag", func(t *testing.T) {
		s := open(t)
		u := newUser(t, s, "default")
		a, err := s.CreateList(ctx, models.List{UserID: u.ID, Name: "A", IsDefault: true})
		require.NoError(t, err)
		b, err := s.CreateList(ctx, models.List{UserID: u.ID, Name: "B"})
		require.NoError(t, err)

		require.NoError(t, s.SetDefaultList(ctx, u.ID, b.ID))

		lists, err := s.FindLists(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, lists, 2)
		for _, l := range lists {
			assert.Equal(t, l.ID == b.ID, l.IsDefault, "list %s", l.Name)
		}
		assert.ErrorIs(t, s.SetDefaultList(ctx, u.ID, a.ID+b.ID+1000), ErrNotFound)
	})

	t.Run("position round trip", func(t *testing.T) {
		s := open(t)
		u := newUser(t, s, "pos")
		l, err := s.CreateList(ctx, models.List{UserID: u.ID, Name: "Main", IsDefault: true})
		require.NoError(t, err)

		date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
		p, err := s.UpsertPosition(ctx, models.Position{
			UserID:        u.ID,
			ListID:        idPtr(l.ID),
			Symbol:        "AAPL",
			Quantity:      decimal.NewFromInt(10),
			PurchasePrice: decimal.NewFromInt(100),
			PurchaseDate:  date,
		})
		require.NoError(t, err)
		require.NotZero(t, p.ID)

		found, err := s.FindOpenPosition(ctx, u.ID, "AAPL", idPtr(l.ID))
		require.NoError(t, err)
		assert.Equal(t, p.ID, found.ID)
		assert.True(t, found.Quantity.Equal(decimal.NewFromInt(10)))

		_, err = s.FindOpenPosition(ctx, u.ID, "AAPL", nil)
		assert.ErrorIs(t, err, ErrNotFound)

		found.Quantity = decimal.NewFromInt(4)
		_, err = s.UpsertPosition(ctx, found)
		require.NoError(t, err)

		again, err := s.FindPosition(ctx, u.ID, p.ID)
		require.NoError(t, err)
		assert.True(t, again.Quantity.Equal(decimal.NewFromInt(4)))
		assert.True(t, again.PurchasePrice.Equal(decimal.NewFromInt(100)))

		_, err = s.UpsertPosition(ctx, models.Position{
			UserID:        u.ID,
			ListID:        idPtr(l.ID),
			Symbol:        "AAPL",
			Quantity:      decimal.NewFromInt(1),
			PurchasePrice: decimal.NewFromInt(1),
			PurchaseDate:  date,
		})
		assert.ErrorIs(t, err, ErrDuplicate)

		_, err = s.FindPosition(ctx, u.ID+999999, p.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("deleting a position keeps its transactions", func(t *testing.T) {
		s := open(t)
		u := newUser(t, s, "audit")
		p, err := s.UpsertPosition(ctx, models.Position{
			UserID:        u.ID,
			Symbol:        "MSFT",
			Quantity:      decimal.NewFromInt(2),
			PurchasePrice: decimal.NewFromInt(300),
			PurchaseDate:  time.Now().UTC(),
		})
		require.NoError(t, err)
		_, err = s.InsertTransaction(ctx, models.Transaction{
			UserID:     u.ID,
			PositionID: idPtr(p.ID),
			Symbol:     "MSFT",
			Type:       models.TransactionBuy,
			Quantity:   decimal.NewFromInt(2),
			Price:      decimal.NewFromInt(300),
			Date:       time.Now().UTC(),
		})
		require.NoError(t, err)

		require.NoError(t, s.DeletePosition(ctx, u.ID, p.ID))

		txs, err := s.FindTransactions(ctx, u.ID, TransactionFilter{})
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Nil(t, txs[0].PositionID)
		assert.ErrorIs(t, s.DeletePosition(ctx, u.ID, p.ID), ErrNotFound)
	})

	t.Run("transaction filters", func(t *testing.T) {
		s := open(t)
		u := newUser(t, s, "filters")
		l, err := s.CreateList(ctx, models.List{UserID: u.ID, Name: "Main", IsDefault: true})
		require.NoError(t, err)

		base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		for i, sym := range []string{"AAPL", "MSFT", "AAPL"} {
			var listID *int64
			if i > 0 {
				listID = idPtr(l.ID)
			}
			_, err := s.InsertTransaction(ctx, models.Transaction{
				UserID:   u.ID,
				ListID:   listID,
				Symbol:   sym,
				Type:     models.TransactionBuy,
				Quantity: decimal.NewFromInt(1),
				Price:    decimal.NewFromInt(10),
				Date:     base.AddDate(0, 0, i),
			})
			require.NoError(t, err)
		}

		all, err := s.FindTransactions(ctx, u.ID, TransactionFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.True(t, all[0].Date.After(all[2].Date), "newest first")

		aapl, err := s.FindTransactions(ctx, u.ID, TransactionFilter{Symbol: "AAPL"})
		require.NoError(t, err)
		assert.Len(t, aapl, 2)

		inList, err := s.FindTransactions(ctx, u.ID, TransactionFilter{ListID: idPtr(l.ID)})
		require.NoError(t, err)
		assert.Len(t, inList, 2)

		limited, err := s.FindTransactions(ctx, u.ID, TransactionFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("cash flows scoped by list", func(t *testing.T) {
		s := open(t)
		u := newUser(t, s, "cash")
		l, err := s.CreateList(ctx, models.List{UserID: u.ID, Name: "Main", IsDefault: true})
		require.NoError(t, err)

		_, err = s.InsertCashFlow(ctx, models.CashFlow{UserID: u.ID, ListID: idPtr(l.ID), Type: models.CashDeposit,
			Amount: decimal.NewFromInt(1000), Date: time.Now().UTC()})
		require.NoError(t, err)
		_, err = s.InsertCashFlow(ctx, models.CashFlow{UserID: u.ID, Type: models.CashWithdrawal,
			Amount: decimal.NewFromInt(200), Date: time.Now().UTC()})
		require.NoError(t, err)

		all, err := s.FindCashFlows(ctx, u.ID, nil)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		scoped, err := s.FindCashFlows(ctx, u.ID, idPtr(l.ID))
		require.NoError(t, err)
		require.Len(t, scoped, 1)
		assert.Equal(t, models.CashDeposit, scoped[0].Type)
		assert.True(t, scoped[0].Amount.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("reassign list moves history", func(t *testing.T) {
		s := open(t)
		u := newUser(t, s, "reassign")
		from, err := s.CreateList(ctx, models.List{UserID: u.ID, Name: "From"})
		require.NoError(t, err)
		to, err := s.CreateList(ctx, models.List{UserID: u.ID, Name: "To", IsDefault: true})
		require.NoError(t, err)

		_, err = s.InsertCashFlow(ctx, models.CashFlow{UserID: u.ID, ListID: idPtr(from.ID), Type: models.CashDeposit,
			Amount: decimal.NewFromInt(50), Date: time.Now().UTC()})
		require.NoError(t, err)

		require.NoError(t, s.ReassignList(ctx, u.ID, from.ID, idPtr(to.ID)))
		require.NoError(t, s.DeleteList(ctx, u.ID, from.ID))

		flows, err := s.FindCashFlows(ctx, u.ID, idPtr(to.ID))
		require.NoError(t, err)
		assert.Len(t, flows, 1)
	})

	t.Run("WithinTx rolls back on error", func(t *testing.T) {
		s := open(t)
		u := newUser(t, s, "rollback")

		err := s.WithinTx(ctx, func(tx Store) error {
			_, err := tx.UpsertPosition(ctx, models.Position{
				UserID:        u.ID,
				Symbol:        "TSLA",
				Quantity:      decimal.NewFromInt(1),
				PurchasePrice: decimal.NewFromInt(200),
				PurchaseDate:  time.Now().UTC(),
			})
			require.NoError(t, err)
			return errBoom
		})
		assert.ErrorIs(t, err, errBoom)

		positions, err := s.FindPositionsByUser(ctx, u.ID, nil)
		require.NoError(t, err)
		assert.Empty(t, positions)
	})

	t.Run("delete user cascades", func(t *testing.T) {
		s := open(t)
		u := newUser(t, s, "cascade")
		_, err := s.CreateList(ctx, models.List{UserID: u.ID, Name: "Main", IsDefault: true})
		require.NoError(t, err)

		require.NoError(t, s.DeleteUser(ctx, u.ID))

		_, err = s.GetUser(ctx, u.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		lists, err := s.FindLists(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, lists)
	})
}
