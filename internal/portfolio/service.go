// Package portfolio applies buys, sells and cash flows and values a user's
// holdings against market data.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/marketdata"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/models"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/store"
)

// DefaultListName is the list every user gets at registration.
const DefaultListName = "My Portfolio"

const maxListNameLength = 100

// QuoteProvider supplies market data; *marketdata.Provider satisfies it.
type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (marketdata.Quote, error)
	GetQuotes(ctx context.Context, symbols []string) (map[string]marketdata.Quote, map[string]error)
}

// Service orchestrates the store, the quote provider and the pure
// aggregation functions.
type Service struct {
	store  store.Store
	quotes QuoteProvider
	log    zerolog.Logger
	now    func() time.Time
	cost   int
}

// ServiceOption configures the service
type ServiceOption func(*Service)

// WithNow overrides the clock.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) { s.cost = cost }
}

// NewService creates the portfolio service
func NewService(st store.Store, quotes QuoteProvider, log zerolog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		store:  st,
		quotes: quotes,
		log:    log.With().Str("component", "portfolio").Logger(),
		now:    time.Now,
		cost:   bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ---- users ----

// RegisterInput - new account
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register stores a bcrypt hash of the password and creates the default list.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.User, models.List, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case username == "":
		return models.User{}, models.List{}, invalid("username", "is required")
	case !strings.Contains(email, "@"):
		return models.User{}, models.List{}, invalid("email", "must be an email address")
	case len(in.Password) < 8:
		return models.User{}, models.List{}, invalid("password", "must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return models.User{}, models.List{}, fmt.Errorf("hash password: %w", err)
	}

	var (
		user models.User
		list models.List
	)
	err = s.store.WithinTx(ctx, func(tx store.Store) error {
		var err error
		user, err = tx.CreateUser(ctx, models.User{Username: username, Email: email, PasswordHash: string(hash)})
		if errors.Is(err, store.ErrDuplicate) {
			return ErrDuplicateUser
		}
		if err != nil {
			return err
		}
		list, err = tx.CreateList(ctx, models.List{UserID: user.ID, Name: DefaultListName, IsDefault: true})
		return err
	})
	if err != nil {
		return models.User{}, models.List{}, err
	}

	s.log.Info().Int64("user_id", user.ID).Msg("User registered")
	return user, list, nil
}

// CheckPassword reports whether password matches the user's stored hash.
func (s *Service) CheckPassword(ctx context.Context, userID int64, password string) (bool, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil, nil
}

// DeleteUser removes the user and everything they own.
func (s *Service) DeleteUser(ctx context.Context, userID int64) error {
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.log.Info().Int64("user_id", userID).Msg("User deleted")
	return nil
}

func (s *Service) requireUser(ctx context.Context, st store.Store, userID int64) error {
	if userID <= 0 {
		return invalid("userId", "must be positive")
	}
	_, err := st.GetUser(ctx, userID)
	return err
}

// ---- lists ----

func normalizeListName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("name", "is required")
	}
	if len(name) > maxListNameLength {
		return "", invalid("name", fmt.Sprintf("must be at most %d characters", maxListNameLength))
	}
	return name, nil
}

// Lists returns the user's lists in creation order.
func (s *Service) Lists(ctx context.Context, userID int64) ([]models.List, error) {
	if err := s.requireUser(ctx, s.store, userID); err != nil {
		return nil, err
	}
	return s.store.FindLists(ctx, userID)
}

// CreateList adds a non-default list.
func (s *Service) CreateList(ctx context.Context, userID int64, name string) (models.List, error) {
	name, err := normalizeListName(name)
	if err != nil {
		return models.List{}, err
	}
	if err := s.requireUser(ctx, s.store, userID); err != nil {
		return models.List{}, err
	}

	l, err := s.store.CreateList(ctx, models.List{UserID: userID, Name: name})
	if errors.Is(err, store.ErrDuplicate) {
		return models.List{}, ErrDuplicateListName
	}
	return l, err
}

// RenameList changes a list's name, keeping names unique per user.
func (s *Service) RenameList(ctx context.Context, userID, listID int64, name string) (models.List, error) {
	name, err := normalizeListName(name)
	if err != nil {
		return models.List{}, err
	}
	l, err := s.store.RenameList(ctx, userID, listID, name)
	if errors.Is(err, store.ErrDuplicate) {
		return models.List{}, ErrDuplicateListName
	}
	return l, err
}

// SetDefaultList moves the default flag to listID.
func (s *Service) SetDefaultList(ctx context.Context, userID, listID int64) error {
	return s.store.WithinTx(ctx, func(tx store.Store) error {
		return tx.SetDefaultList(ctx, userID, listID)
	})
}

// DeleteList removes a non-default list. Its positions, transactions and
// cash flows move to the default list; a position whose symbol is already in
// the default list is merged into it at weighted-average cost.
func (s *Service) DeleteList(ctx context.Context, userID, listID int64) error {
	return s.store.WithinTx(ctx, func(tx store.Store) error {
		l, err := tx.GetList(ctx, userID, listID)
		if err != nil {
			return err
		}
		if l.IsDefault {
			return ErrDefaultListDelete
		}

		target, err := defaultListID(ctx, tx, userID)
		if err != nil {
			return err
		}

		positions, err := tx.FindPositionsByUser(ctx, userID, &listID)
		if err != nil {
			return err
		}
		for _, p := range positions {
			if err := movePosition(ctx, tx, p, target); err != nil {
				return err
			}
		}

		if err := tx.ReassignList(ctx, userID, listID, target); err != nil {
			return err
		}
		if err := tx.DeleteList(ctx, userID, listID); err != nil {
			return err
		}

		s.log.Info().
			Int64("user_id", userID).
			Int64("list_id", listID).
			Int("positions_moved", len(positions)).
			Msg("List deleted")
		return nil
	})
}

func movePosition(ctx context.Context, tx store.Store, p models.Position, target *int64) error {
	existing, err := tx.FindOpenPosition(ctx, p.UserID, p.Symbol, target)
	if errors.Is(err, store.ErrNotFound) {
		p.ListID = target
		_, err = tx.UpsertPosition(ctx, p)
		return err
	}
	if err != nil {
		return err
	}

	if !p.IsWatchOnly() {
		if existing.IsWatchOnly() {
			existing.Quantity = p.Quantity
			existing.PurchasePrice = p.PurchasePrice
			existing.PurchaseDate = p.PurchaseDate
		} else {
			existing.PurchasePrice = WeightedAverage(existing.Quantity, existing.PurchasePrice, p.Quantity, p.PurchasePrice)
			existing.Quantity = existing.Quantity.Add(p.Quantity)
			if p.PurchaseDate.Before(existing.PurchaseDate) {
				existing.PurchaseDate = p.PurchaseDate
			}
		}
		if _, err := tx.UpsertPosition(ctx, existing); err != nil {
			return err
		}
	}
	return tx.DeletePosition(ctx, p.UserID, p.ID)
}

// defaultListID returns nil when the user has no default list.
func defaultListID(ctx context.Context, st store.Store, userID int64) (*int64, error) {
	lists, err := st.FindLists(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, l := range lists {
		if l.IsDefault {
			id := l.ID
			return &id, nil
		}
	}
	return nil, nil
}

// resolveList checks an explicit list belongs to the user, or picks the default.
func resolveList(ctx context.Context, st store.Store, userID int64, listID *int64) (*int64, error) {
	if listID == nil {
		return defaultListID(ctx, st, userID)
	}
	if _, err := st.GetList(ctx, userID, *listID); err != nil {
		return nil, err
	}
	id := *listID
	return &id, nil
}

// ---- trades ----

// BuyInput - a buy of Quantity shares at Price
type BuyInput struct {
	UserID   int64
	ListID   *int64
	Symbol   string
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Fees     decimal.Decimal
	Date     time.Time // zero means now
	Notes    string
}

func (in *BuyInput) validate() error {
	in.Symbol = marketdata.NormalizeSymbol(in.Symbol)
	switch {
	case in.UserID <= 0:
		return invalid("userId", "must be positive")
	case in.Symbol == "":
		return invalid("symbol", "is required")
	case !in.Quantity.IsPositive():
		return invalid("quantity", "must be greater than 0")
	case !in.Price.IsPositive():
		return invalid("price", "must be greater than 0")
	case in.Fees.IsNegative():
		return invalid("fees", "must not be negative")
	}
	return nil
}

// ApplyBuy folds a buy into the user's open position for (symbol, list),
// creating it if needed, and records the transaction in the same unit.
func (s *Service) ApplyBuy(ctx context.Context, in BuyInput) (models.Position, models.Transaction, error) {
	if err := in.validate(); err != nil {
		return models.Position{}, models.Transaction{}, err
	}
	if in.Date.IsZero() {
		in.Date = s.now().UTC()
	}

	var (
		pos models.Position
		txn models.Transaction
	)
	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		if err := s.requireUser(ctx, tx, in.UserID); err != nil {
			return err
		}
		listID, err := resolveList(ctx, tx, in.UserID, in.ListID)
		if err != nil {
			return err
		}

		existing, err := tx.FindOpenPosition(ctx, in.UserID, in.Symbol, listID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			existing = models.Position{UserID: in.UserID, ListID: listID, Symbol: in.Symbol, Notes: in.Notes}
		case err != nil:
			return err
		}

		pos, err = tx.UpsertPosition(ctx, ApplyBuyToPosition(existing, in.Quantity, in.Price, in.Date))
		if err != nil {
			return err
		}

		positionID := pos.ID
		txn, err = tx.InsertTransaction(ctx, models.Transaction{
			UserID:     in.UserID,
			PositionID: &positionID,
			ListID:     listID,
			Symbol:     in.Symbol,
			Type:       models.TransactionBuy,
			Quantity:   in.Quantity,
			Price:      in.Price,
			Fees:       in.Fees,
			Date:       in.Date,
			Notes:      in.Notes,
		})
		return err
	})
	if err != nil {
		return models.Position{}, models.Transaction{}, err
	}

	s.log.Info().
		Int64("user_id", in.UserID).
		Str("symbol", in.Symbol).
		Str("quantity", in.Quantity.String()).
		Str("price", in.Price.String()).
		Msg("Buy applied")
	return pos, txn, nil
}

// SellInput - a sell of Quantity shares from one position
type SellInput struct {
	UserID     int64
	PositionID int64
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Fees       decimal.Decimal
	Date       time.Time // zero means now
	Notes      string
}

func (in SellInput) validate() error {
	switch {
	case in.UserID <= 0:
		return invalid("userId", "must be positive")
	case in.PositionID <= 0:
		return invalid("positionId", "must be positive")
	case !in.Quantity.IsPositive():
		return invalid("quantity", "must be greater than 0")
	case !in.Price.IsPositive():
		return invalid("price", "must be greater than 0")
	case in.Fees.IsNegative():
		return invalid("fees", "must not be negative")
	}
	return nil
}

// ApplySell removes shares from a position, deleting it when none remain,
// and records the sell transaction in the same unit. The average cost of a
// partially sold position does not change.
func (s *Service) ApplySell(ctx context.Context, in SellInput) (models.Transaction, error) {
	if err := in.validate(); err != nil {
		return models.Transaction{}, err
	}
	if in.Date.IsZero() {
		in.Date = s.now().UTC()
	}

	var (
		txn    models.Transaction
		closed bool
	)
	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		pos, err := tx.FindPosition(ctx, in.UserID, in.PositionID)
		if err != nil {
			return err
		}

		remaining, isClosed, err := ApplySellToPosition(pos, in.Quantity)
		if err != nil {
			return err
		}
		closed = isClosed

		var positionID *int64
		if closed {
			if err := tx.DeletePosition(ctx, in.UserID, pos.ID); err != nil {
				return err
			}
		} else {
			if _, err := tx.UpsertPosition(ctx, remaining); err != nil {
				return err
			}
			id := pos.ID
			positionID = &id
		}

		txn, err = tx.InsertTransaction(ctx, models.Transaction{
			UserID:     in.UserID,
			PositionID: positionID,
			ListID:     pos.ListID,
			Symbol:     pos.Symbol,
			Type:       models.TransactionSell,
			Quantity:   in.Quantity,
			Price:      in.Price,
			Fees:       in.Fees,
			Date:       in.Date,
			Notes:      in.Notes,
		})
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}

	s.log.Info().
		Int64("user_id", in.UserID).
		Int64("position_id", in.PositionID).
		Str("symbol", txn.Symbol).
		Str("quantity", in.Quantity.String()).
		Bool("closed", closed).
		Msg("Sell applied")
	return txn, nil
}

// AddWatch adds a watch-only entry. An existing entry for the symbol in the
// list is returned unchanged with created=false.
func (s *Service) AddWatch(ctx context.Context, userID int64, listID *int64, symbol string) (pos models.Position, created bool, err error) {
	symbol = marketdata.NormalizeSymbol(symbol)
	if symbol == "" {
		return models.Position{}, false, invalid("symbol", "is required")
	}

	err = s.store.WithinTx(ctx, func(tx store.Store) error {
		if err := s.requireUser(ctx, tx, userID); err != nil {
			return err
		}
		target, err := resolveList(ctx, tx, userID, listID)
		if err != nil {
			return err
		}

		pos, err = tx.FindOpenPosition(ctx, userID, symbol, target)
		if err == nil || !errors.Is(err, store.ErrNotFound) {
			return err
		}

		pos, err = tx.UpsertPosition(ctx, models.Position{
			UserID:       userID,
			ListID:       target,
			Symbol:       symbol,
			PurchaseDate: s.now().UTC(),
		})
		created = err == nil
		return err
	})
	return pos, created, err
}

// RemoveWatch deletes a watch-only entry. Positions holding shares must be sold instead.
func (s *Service) RemoveWatch(ctx context.Context, userID, positionID int64) error {
	return s.store.WithinTx(ctx, func(tx store.Store) error {
		pos, err := tx.FindPosition(ctx, userID, positionID)
		if err != nil {
			return err
		}
		if !pos.IsWatchOnly() {
			return ErrPositionHasShares
		}
		return tx.DeletePosition(ctx, userID, positionID)
	})
}

// Transactions returns the user's history, newest first.
func (s *Service) Transactions(ctx context.Context, userID int64, f store.TransactionFilter) ([]models.Transaction, error) {
	if err := s.requireUser(ctx, s.store, userID); err != nil {
		return nil, err
	}
	if f.Limit < 0 {
		return nil, invalid("limit", "must not be negative")
	}
	f.Symbol = marketdata.NormalizeSymbol(f.Symbol)
	return s.store.FindTransactions(ctx, userID, f)
}

// ---- cash ----

// CashFlowInput - a deposit or withdrawal
type CashFlowInput struct {
	UserID int64
	ListID *int64
	Type   models.CashFlowType
	Amount decimal.Decimal
	Date   time.Time // zero means now
	Notes  string
}

// RecordCashFlow stores a deposit or withdrawal. Withdrawals beyond prior
// deposits are accepted.
func (s *Service) RecordCashFlow(ctx context.Context, in CashFlowInput) (models.CashFlow, error) {
	switch {
	case !in.Type.Valid():
		return models.CashFlow{}, invalid("type", "must be deposit or withdrawal")
	case !in.Amount.IsPositive():
		return models.CashFlow{}, invalid("amount", "must be greater than 0")
	}
	if in.Date.IsZero() {
		in.Date = s.now().UTC()
	}

	var flow models.CashFlow
	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		if err := s.requireUser(ctx, tx, in.UserID); err != nil {
			return err
		}
		listID, err := resolveList(ctx, tx, in.UserID, in.ListID)
		if err != nil {
			return err
		}
		flow, err = tx.InsertCashFlow(ctx, models.CashFlow{
			UserID: in.UserID,
			ListID: listID,
			Type:   in.Type,
			Amount: in.Amount,
			Date:   in.Date,
			Notes:  in.Notes,
		})
		return err
	})
	return flow, err
}

// CashFlows returns the flows for a list (or all lists when listID is nil) and their totals.
func (s *Service) CashFlows(ctx context.Context, userID int64, listID *int64) ([]models.CashFlow, CashSummary, error) {
	if err := s.requireUser(ctx, s.store, userID); err != nil {
		return nil, CashSummary{}, err
	}
	flows, err := s.store.FindCashFlows(ctx, userID, listID)
	if err != nil {
		return nil, CashSummary{}, err
	}
	return flows, SummarizeCash(flows), nil
}

// NetCashInvested is deposits minus withdrawals for a list, or for all the
// user's flows when listID is nil.
func (s *Service) NetCashInvested(ctx context.Context, userID int64, listID *int64) (decimal.Decimal, error) {
	_, summary, err := s.CashFlows(ctx, userID, listID)
	if err != nil {
		return decimal.Zero, err
	}
	return summary.NetInvested, nil
}

// ---- valuation ----

// Positions returns the user's positions priced with current quotes. A
// symbol whose quote is unavailable is returned without valuation.
func (s *Service) Positions(ctx context.Context, userID int64, listID *int64) ([]ValuedPosition, error) {
	if err := s.requireUser(ctx, s.store, userID); err != nil {
		return nil, err
	}
	positions, err := s.store.FindPositionsByUser(ctx, userID, listID)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return []ValuedPosition{}, nil
	}

	seen := make(map[string]bool, len(positions))
	symbols := make([]string, 0, len(positions))
	for _, p := range positions {
		if !seen[p.Symbol] {
			seen[p.Symbol] = true
			symbols = append(symbols, p.Symbol)
		}
	}

	quotes, errs := s.quotes.GetQuotes(ctx, symbols)
	for symbol, err := range errs {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Valuing without quote")
	}

	items := make([]ValuedPosition, 0, len(positions))
	for _, p := range positions {
		var q *marketdata.Quote
		if quote, ok := quotes[p.Symbol]; ok {
			q = &quote
		}
		items = append(items, NewValuedPosition(p, q))
	}
	return items, nil
}

// Summary values the user's positions and rolls them up with net cash invested.
func (s *Service) Summary(ctx context.Context, userID int64, listID *int64) (Summary, []ValuedPosition, error) {
	items, err := s.Positions(ctx, userID, listID)
	if err != nil {
		return Summary{}, nil, err
	}
	cash, err := s.NetCashInvested(ctx, userID, listID)
	if err != nil {
		return Summary{}, nil, err
	}

	summary := Summarize(items, cash.InexactFloat64(), s.now())

	txs, err := s.store.FindTransactions(ctx, userID, store.TransactionFilter{ListID: listID})
	if err != nil {
		return Summary{}, nil, err
	}
	realized := decimal.Zero
	for _, h := range s.replay(txs) {
		realized = realized.Add(h.RealizedGainLoss)
	}
	summary.RealizedGainLoss = realized.InexactFloat64()

	return summary, items, nil
}

// Holdings rebuilds per-symbol holdings from the transaction history.
func (s *Service) Holdings(ctx context.Context, userID int64, listID *int64) ([]Holding, error) {
	if err := s.requireUser(ctx, s.store, userID); err != nil {
		return nil, err
	}
	txs, err := s.store.FindTransactions(ctx, userID, store.TransactionFilter{ListID: listID})
	if err != nil {
		return nil, err
	}
	holdings := s.replay(txs)
	for i := range holdings {
		holdings[i].AverageCost = RoundPrice(holdings[i].AverageCost)
	}
	return holdings, nil
}

// replay rebuilds holdings, logging the (symbol, list) groups that do not replay.
func (s *Service) replay(txs []models.Transaction) []Holding {
	holdings, failed := ReplayAll(txs)
	for _, f := range failed {
		ev := s.log.Warn().Err(f.Err).Str("symbol", f.Symbol)
		if f.ListID != nil {
			ev = ev.Int64("list_id", *f.ListID)
		}
		ev.Msg("Transaction history does not replay")
	}
	if holdings == nil {
		holdings = []Holding{}
	}
	return holdings
}

// Quote returns a single symbol's quote.
func (s *Service) Quote(ctx context.Context, symbol string) (marketdata.Quote, error) {
	return s.quotes.GetQuote(ctx, symbol)
}
