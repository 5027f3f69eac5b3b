package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/models"
)

// dbtx is satisfied by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres is the lib/pq backed Store.
type Postgres struct {
	db  *sql.DB
	q   dbtx
	tx  bool
	log zerolog.Logger
}

// NewPostgres wraps an open connection pool
func NewPostgres(db *sql.DB, log zerolog.Logger) *Postgres {
	return &Postgres{
		db:  db,
		q:   db,
		log: log.With().Str("component", "store").Logger(),
	}
}

// WithinTx runs fn inside a database transaction, committing when fn returns nil.
// Nested calls reuse the outer transaction.
func (p *Postgres) WithinTx(ctx context.Context, fn func(Store) error) error {
	if p.tx {
		return fn(p)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback if we don't commit

	if err := fn(&Postgres{db: p.db, q: tx, tx: true, log: p.log}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// forUpdate locks selected rows when running inside a transaction.
func (p *Postgres) forUpdate() string {
	if p.tx {
		return " FOR UPDATE"
	}
	return ""
}

func mapErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return ErrDuplicate
		case "23503": // foreign_key_violation
			return ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullID(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// ---- users ----

func (p *Postgres) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	err := p.q.QueryRowContext(ctx, `
        INSERT INTO users (username, email, password_hash)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `, u.Username, u.Email, u.PasswordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return models.User{}, mapErr(err, "create user")
	}
	return u, nil
}

func (p *Postgres) GetUser(ctx context.Context, userID int64) (models.User, error) {
	var u models.User
	err := p.q.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1",
		userID,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return models.User{}, mapErr(err, "get user")
	}
	return u, nil
}

func (p *Postgres) DeleteUser(ctx context.Context, userID int64) error {
	return p.execOne(ctx, "delete user", "DELETE FROM users WHERE id = $1", userID)
}

// execOne runs a statement that must affect exactly one row.
func (p *Postgres) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := p.q.ExecContext(ctx, query, args...)
	if err != nil {
		return mapErr(err, op)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- lists ----

const listColumns = "id, user_id, name, is_default, created_at"

func scanList(row interface{ Scan(...any) error }) (models.List, error) {
	var l models.List
	err := row.Scan(&l.ID, &l.UserID, &l.Name, &l.IsDefault, &l.CreatedAt)
	return l, err
}

func (p *Postgres) CreateList(ctx context.Context, l models.List) (models.List, error) {
	err := p.q.QueryRowContext(ctx, `
        INSERT INTO lists (user_id, name, is_default)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `, l.UserID, l.Name, l.IsDefault).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return models.List{}, mapErr(err, "create list")
	}
	return l, nil
}

func (p *Postgres) GetList(ctx context.Context, userID, listID int64) (models.List, error) {
	l, err := scanList(p.q.QueryRowContext(ctx,
		"SELECT "+listColumns+" FROM lists WHERE id = $1 AND user_id = $2",
		listID, userID,
	))
	if err != nil {
		return models.List{}, mapErr(err, "get list")
	}
	return l, nil
}

func (p *Postgres) FindLists(ctx context.Context, userID int64) ([]models.List, error) {
	rows, err := p.q.QueryContext(ctx,
		"SELECT "+listColumns+" FROM lists WHERE user_id = $1 ORDER BY id",
		userID,
	)
	if err != nil {
		return nil, mapErr(err, "find lists")
	}
	defer rows.Close()

	lists := make([]models.List, 0)
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

func (p *Postgres) RenameList(ctx context.Context, userID, listID int64, name string) (models.List, error) {
	l, err := scanList(p.q.QueryRowContext(ctx,
		"UPDATE lists SET name = $1 WHERE id = $2 AND user_id = $3 RETURNING "+listColumns,
		name, listID, userID,
	))
	if err != nil {
		return models.List{}, mapErr(err, "rename list")
	}
	return l, nil
}

// SetDefaultList clears the old default before setting the new one; the
// partial unique index on is_default is checked per statement.
func (p *Postgres) SetDefaultList(ctx context.Context, userID, listID int64) error {
	return p.WithinTx(ctx, func(s Store) error {
		tx := s.(*Postgres)
		if _, err := tx.GetList(ctx, userID, listID); err != nil {
			return err
		}
		if _, err := tx.q.ExecContext(ctx,
			"UPDATE lists SET is_default = FALSE WHERE user_id = $1 AND is_default",
			userID,
		); err != nil {
			return mapErr(err, "clear default list")
		}
		return tx.execOne(ctx, "set default list",
			"UPDATE lists SET is_default = TRUE WHERE id = $1 AND user_id = $2",
			listID, userID,
		)
	})
}

func (p *Postgres) DeleteList(ctx context.Context, userID, listID int64) error {
	return p.execOne(ctx, "delete list", "DELETE FROM lists WHERE id = $1 AND user_id = $2", listID, userID)
}

func (p *Postgres) ReassignList(ctx context.Context, userID, fromListID int64, toListID *int64) error {
	if _, err := p.q.ExecContext(ctx,
		"UPDATE transactions SET list_id = $1 WHERE user_id = $2 AND list_id = $3",
		toListID, userID, fromListID,
	); err != nil {
		return mapErr(err, "reassign transactions")
	}
	if _, err := p.q.ExecContext(ctx,
		"UPDATE cash_flows SET list_id = $1 WHERE user_id = $2 AND list_id = $3",
		toListID, userID, fromListID,
	); err != nil {
		return mapErr(err, "reassign cash flows")
	}
	return nil
}

// ---- positions ----

const positionColumns = `id, user_id, list_id, symbol, quantity, purchase_price,
        purchase_date, notes, created_at, updated_at`

func scanPosition(row interface{ Scan(...any) error }) (models.Position, error) {
	var (
		pos    models.Position
		listID sql.NullInt64
	)
	err := row.Scan(&pos.ID, &pos.UserID, &listID, &pos.Symbol, &pos.Quantity, &pos.PurchasePrice,
		&pos.PurchaseDate, &pos.Notes, &pos.CreatedAt, &pos.UpdatedAt)
	pos.ListID = nullID(listID)
	return pos, err
}

func (p *Postgres) FindPositionsByUser(ctx context.Context, userID int64, listID *int64) ([]models.Position, error) {
	rows, err := p.q.QueryContext(ctx, `
        SELECT `+positionColumns+`
        FROM positions
        WHERE user_id = $1 AND ($2::BIGINT IS NULL OR list_id = $2)
        ORDER BY symbol, id
    `, userID, listID)
	if err != nil {
		return nil, mapErr(err, "find positions")
	}
	defer rows.Close()

	positions := make([]models.Position, 0)
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

func (p *Postgres) FindPosition(ctx context.Context, userID, positionID int64) (models.Position, error) {
	pos, err := scanPosition(p.q.QueryRowContext(ctx,
		"SELECT "+positionColumns+" FROM positions WHERE id = $1 AND user_id = $2"+p.forUpdate(),
		positionID, userID,
	))
	if err != nil {
		return models.Position{}, mapErr(err, "find position")
	}
	return pos, nil
}

func (p *Postgres) FindOpenPosition(ctx context.Context, userID int64, symbol string, listID *int64) (models.Position, error) {
	pos, err := scanPosition(p.q.QueryRowContext(ctx, `
        SELECT `+positionColumns+`
        FROM positions
        WHERE user_id = $1 AND symbol = $2 AND list_id IS NOT DISTINCT FROM $3
    `+p.forUpdate(), userID, symbol, listID))
	if err != nil {
		return models.Position{}, mapErr(err, "find open position")
	}
	return pos, nil
}

func (p *Postgres) UpsertPosition(ctx context.Context, pos models.Position) (models.Position, error) {
	if pos.ID == 0 {
		err := p.q.QueryRowContext(ctx, `
            INSERT INTO positions (user_id, list_id, symbol, quantity, purchase_price, purchase_date, notes)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
            RETURNING id, created_at, updated_at
        `, pos.UserID, pos.ListID, pos.Symbol, pos.Quantity, pos.PurchasePrice, pos.PurchaseDate, pos.Notes,
		).Scan(&pos.ID, &pos.CreatedAt, &pos.UpdatedAt)
		if err != nil {
			return models.Position{}, mapErr(err, "insert position")
		}
		return pos, nil
	}

	err := p.q.QueryRowContext(ctx, `
        UPDATE positions
        SET list_id = $1, quantity = $2, purchase_price = $3, purchase_date = $4, notes = $5, updated_at = NOW()
        WHERE id = $6 AND user_id = $7
        RETURNING created_at, updated_at
    `, pos.ListID, pos.Quantity, pos.PurchasePrice, pos.PurchaseDate, pos.Notes, pos.ID, pos.UserID,
	).Scan(&pos.CreatedAt, &pos.UpdatedAt)
	if err != nil {
		return models.Position{}, mapErr(err, "update position")
	}
	return pos, nil
}

func (p *Postgres) DeletePosition(ctx context.Context, userID, positionID int64) error {
	return p.execOne(ctx, "delete position",
		"DELETE FROM positions WHERE id = $1 AND user_id = $2", positionID, userID)
}

func (p *Postgres) DistinctSymbols(ctx context.Context) ([]string, error) {
	rows, err := p.q.QueryContext(ctx, "SELECT DISTINCT symbol FROM positions ORDER BY symbol")
	if err != nil {
		return nil, mapErr(err, "distinct symbols")
	}
	defer rows.Close()

	symbols := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// ---- transactions ----

func (p *Postgres) InsertTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	err := p.q.QueryRowContext(ctx, `
        INSERT INTO transactions (user_id, position_id, list_id, symbol, type, quantity, price, fees, date, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at
    `, t.UserID, t.PositionID, t.ListID, t.Symbol, string(t.Type), t.Quantity, t.Price, t.Fees, t.Date, t.Notes,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return models.Transaction{}, mapErr(err, "insert transaction")
	}
	return t, nil
}

func (p *Postgres) FindTransactions(ctx context.Context, userID int64, f TransactionFilter) ([]models.Transaction, error) {
	var limit any
	if f.Limit > 0 {
		limit = f.Limit
	}
	rows, err := p.q.QueryContext(ctx, `
        SELECT id, user_id, position_id, list_id, symbol, type, quantity, price, fees, date, notes, created_at
        FROM transactions
        WHERE user_id = $1
          AND ($2 = '' OR symbol = $2)
          AND ($3::BIGINT IS NULL OR list_id = $3)
        ORDER BY date DESC, id DESC
        LIMIT $4
    `, userID, f.Symbol, f.ListID, limit)
	if err != nil {
		return nil, mapErr(err, "find transactions")
	}
	defer rows.Close()

	txs := make([]models.Transaction, 0)
	for rows.Next() {
		var (
			t                  models.Transaction
			positionID, listID sql.NullInt64
			typ                string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &positionID, &listID, &t.Symbol, &typ,
			&t.Quantity, &t.Price, &t.Fees, &t.Date, &t.Notes, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = models.TransactionType(typ)
		t.PositionID = nullID(positionID)
		t.ListID = nullID(listID)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// ---- cash flows ----

func (p *Postgres) InsertCashFlow(ctx context.Context, c models.CashFlow) (models.CashFlow, error) {
	err := p.q.QueryRowContext(ctx, `
        INSERT INTO cash_flows (user_id, list_id, type, amount, date, notes)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `, c.UserID, c.ListID, string(c.Type), c.Amount, c.Date, c.Notes).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return models.CashFlow{}, mapErr(err, "insert cash flow")
	}
	return c, nil
}

func (p *Postgres) FindCashFlows(ctx context.Context, userID int64, listID *int64) ([]models.CashFlow, error) {
	rows, err := p.q.QueryContext(ctx, `
        SELECT id, user_id, list_id, type, amount, date, notes, created_at
        FROM cash_flows
        WHERE user_id = $1 AND ($2::BIGINT IS NULL OR list_id = $2)
        ORDER BY date, id
    `, userID, listID)
	if err != nil {
		return nil, mapErr(err, "find cash flows")
	}
	defer rows.Close()

	flows := make([]models.CashFlow, 0)
	for rows.Next() {
		var (
			c      models.CashFlow
			listID sql.NullInt64
			typ    string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &listID, &typ, &c.Amount, &c.Date, &c.Notes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cash flow: %w", err)
		}
		c.Type = models.CashFlowType(typ)
		c.ListID = nullID(listID)
		flows = append(flows, c)
	}
	return flows, rows.Err()
}
