package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/models"
)

type memState struct {
	nextID       int64
	users        map[int64]models.User
	lists        map[int64]models.List
	positions    map[int64]models.Position
	transactions map[int64]models.Transaction
	cashFlows    map[int64]models.CashFlow
}

func newMemState() *memState {
	return &memState{
		users:        map[int64]models.User{},
		lists:        map[int64]models.List{},
		positions:    map[int64]models.Position{},
		transactions: map[int64]models.Transaction{},
		cashFlows:    map[int64]models.CashFlow{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	c.nextID = s.nextID
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.lists {
		c.lists[k] = v
	}
	for k, v := range s.positions {
		c.positions[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.cashFlows {
		c.cashFlows[k] = v
	}
	return c
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

// Memory is an in-process Store with the same constraints as the postgres
// schema. WithinTx holds the lock for the whole unit and restores a snapshot
// when fn fails.
type Memory struct {
	mu   *sync.Mutex
	st   *memState
	inTx bool
	now  func() time.Time
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{mu: &sync.Mutex{}, st: newMemState(), now: time.Now}
}

func (m *Memory) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

// WithinTx runs fn atomically.
func (m *Memory) WithinTx(ctx context.Context, fn func(Store) error) error {
	if m.inTx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	tx := &Memory{mu: m.mu, st: m.st, inTx: true, now: m.now}
	if err := fn(tx); err != nil {
		*m.st = *snapshot
		return err
	}
	return nil
}

func (m *Memory) CreateUser(_ context.Context, u models.User) (models.User, error) {
	defer m.lock()()
	for _, other := range m.st.users {
		if strings.EqualFold(other.Username, u.Username) || strings.EqualFold(other.Email, u.Email) {
			return models.User{}, ErrDuplicate
		}
	}
	u.ID = m.st.id()
	u.CreatedAt = m.now()
	m.st.users[u.ID] = u
	return u, nil
}

func (m *Memory) GetUser(_ context.Context, userID int64) (models.User, error) {
	defer m.lock()()
	u, ok := m.st.users[userID]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) DeleteUser(_ context.Context, userID int64) error {
	defer m.lock()()
	if _, ok := m.st.users[userID]; !ok {
		return ErrNotFound
	}
	delete(m.st.users, userID)
	for id, l := range m.st.lists {
		if l.UserID == userID {
			delete(m.st.lists, id)
		}
	}
	for id, p := range m.st.positions {
		if p.UserID == userID {
			delete(m.st.positions, id)
		}
	}
	for id, t := range m.st.transactions {
		if t.UserID == userID {
			delete(m.st.transactions, id)
		}
	}
	for id, c := range m.st.cashFlows {
		if c.UserID == userID {
			delete(m.st.cashFlows, id)
		}
	}
	return nil
}

func (m *Memory) CreateList(_ context.Context, l models.List) (models.List, error) {
	defer m.lock()()
	if _, ok := m.st.users[l.UserID]; !ok {
		return models.List{}, ErrNotFound
	}
	for _, other := range m.st.lists {
		if other.UserID != l.UserID {
			continue
		}
		if strings.EqualFold(other.Name, l.Name) || (l.IsDefault && other.IsDefault) {
			return models.List{}, ErrDuplicate
		}
	}
	l.ID = m.st.id()
	l.CreatedAt = m.now()
	m.st.lists[l.ID] = l
	return l, nil
}

func (m *Memory) GetList(_ context.Context, userID, listID int64) (models.List, error) {
	defer m.lock()()
	l, ok := m.st.lists[listID]
	if !ok || l.UserID != userID {
		return models.List{}, ErrNotFound
	}
	return l, nil
}

func (m *Memory) FindLists(_ context.Context, userID int64) ([]models.List, error) {
	defer m.lock()()
	out := make([]models.List, 0)
	for _, l := range m.st.lists {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) RenameList(_ context.Context, userID, listID int64, name string) (models.List, error) {
	defer m.lock()()
	l, ok := m.st.lists[listID]
	if !ok || l.UserID != userID {
		return models.List{}, ErrNotFound
	}
	for id, other := range m.st.lists {
		if id != listID && other.UserID == userID && strings.EqualFold(other.Name, name) {
			return models.List{}, ErrDuplicate
		}
	}
	l.Name = name
	m.st.lists[listID] = l
	return l, nil
}

func (m *Memory) SetDefaultList(_ context.Context, userID, listID int64) error {
	defer m.lock()()
	l, ok := m.st.lists[listID]
	if !ok || l.UserID != userID {
		return ErrNotFound
	}
	for id, other := range m.st.lists {
		if other.UserID == userID {
			other.IsDefault = id == listID
			m.st.lists[id] = other
		}
	}
	return nil
}

func (m *Memory) DeleteList(_ context.Context, userID, listID int64) error {
	defer m.lock()()
	l, ok := m.st.lists[listID]
	if !ok || l.UserID != userID {
		return ErrNotFound
	}
	delete(m.st.lists, listID)

	// ON DELETE SET NULL
	for id, p := range m.st.positions {
		if p.ListID != nil && *p.ListID == listID {
			p.ListID = nil
			m.st.positions[id] = p
		}
	}
	for id, t := range m.st.transactions {
		if t.ListID != nil && *t.ListID == listID {
			t.ListID = nil
			m.st.transactions[id] = t
		}
	}
	for id, c := range m.st.cashFlows {
		if c.ListID != nil && *c.ListID == listID {
			c.ListID = nil
			m.st.cashFlows[id] = c
		}
	}
	return nil
}

func (m *Memory) ReassignList(_ context.Context, userID, fromListID int64, toListID *int64) error {
	defer m.lock()()
	for id, t := range m.st.transactions {
		if t.UserID == userID && t.ListID != nil && *t.ListID == fromListID {
			t.ListID = copyID(toListID)
			m.st.transactions[id] = t
		}
	}
	for id, c := range m.st.cashFlows {
		if c.UserID == userID && c.ListID != nil && *c.ListID == fromListID {
			c.ListID = copyID(toListID)
			m.st.cashFlows[id] = c
		}
	}
	return nil
}

func (m *Memory) FindPositionsByUser(_ context.Context, userID int64, listID *int64) ([]models.Position, error) {
	defer m.lock()()
	out := make([]models.Position, 0)
	for _, p := range m.st.positions {
		if p.UserID != userID {
			continue
		}
		if listID != nil && !models.SameList(p.ListID, listID) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) FindPosition(_ context.Context, userID, positionID int64) (models.Position, error) {
	defer m.lock()()
	p, ok := m.st.positions[positionID]
	if !ok || p.UserID != userID {
		return models.Position{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) FindOpenPosition(_ context.Context, userID int64, symbol string, listID *int64) (models.Position, error) {
	defer m.lock()()
	for _, p := range m.st.positions {
		if p.UserID == userID && p.Symbol == symbol && models.SameList(p.ListID, listID) {
			return p, nil
		}
	}
	return models.Position{}, ErrNotFound
}

func (m *Memory) UpsertPosition(_ context.Context, p models.Position) (models.Position, error) {
	defer m.lock()()
	now := m.now()
	for id, other := range m.st.positions {
		if id != p.ID && other.UserID == p.UserID && other.Symbol == p.Symbol && models.SameList(other.ListID, p.ListID) {
			return models.Position{}, ErrDuplicate
		}
	}

	if p.ID == 0 {
		if _, ok := m.st.users[p.UserID]; !ok {
			return models.Position{}, ErrNotFound
		}
		p.ID = m.st.id()
		p.CreatedAt = now
	} else {
		existing, ok := m.st.positions[p.ID]
		if !ok || existing.UserID != p.UserID {
			return models.Position{}, ErrNotFound
		}
		p.CreatedAt = existing.CreatedAt
	}
	p.ListID = copyID(p.ListID)
	p.UpdatedAt = now
	m.st.positions[p.ID] = p
	return p, nil
}

func (m *Memory) DeletePosition(_ context.Context, userID, positionID int64) error {
	defer m.lock()()
	p, ok := m.st.positions[positionID]
	if !ok || p.UserID != userID {
		return ErrNotFound
	}
	delete(m.st.positions, positionID)

	// ON DELETE SET NULL
	for id, t := range m.st.transactions {
		if t.PositionID != nil && *t.PositionID == positionID {
			t.PositionID = nil
			m.st.transactions[id] = t
		}
	}
	return nil
}

func (m *Memory) DistinctSymbols(_ context.Context) ([]string, error) {
	defer m.lock()()
	seen := map[string]bool{}
	out := make([]string, 0)
	for _, p := range m.st.positions {
		if !seen[p.Symbol] {
			seen[p.Symbol] = true
			out = append(out, p.Symbol)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) InsertTransaction(_ context.Context, t models.Transaction) (models.Transaction, error) {
	defer m.lock()()
	if _, ok := m.st.users[t.UserID]; !ok {
		return models.Transaction{}, ErrNotFound
	}
	t.ID = m.st.id()
	t.CreatedAt = m.now()
	t.ListID = copyID(t.ListID)
	t.PositionID = copyID(t.PositionID)
	m.st.transactions[t.ID] = t
	return t, nil
}

func (m *Memory) FindTransactions(_ context.Context, userID int64, f TransactionFilter) ([]models.Transaction, error) {
	defer m.lock()()
	out := make([]models.Transaction, 0)
	for _, t := range m.st.transactions {
		if t.UserID != userID {
			continue
		}
		if f.Symbol != "" && t.Symbol != f.Symbol {
			continue
		}
		if f.ListID != nil && !models.SameList(t.ListID, f.ListID) {
			continue
		}
		out = append(out, t)
	}
	// newest first, like the history endpoint
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) InsertCashFlow(_ context.Context, c models.CashFlow) (models.CashFlow, error) {
	defer m.lock()()
	if _, ok := m.st.users[c.UserID]; !ok {
		return models.CashFlow{}, ErrNotFound
	}
	c.ID = m.st.id()
	c.CreatedAt = m.now()
	c.ListID = copyID(c.ListID)
	m.st.cashFlows[c.ID] = c
	return c, nil
}

func (m *Memory) FindCashFlows(_ context.Context, userID int64, listID *int64) ([]models.CashFlow, error) {
	defer m.lock()()
	out := make([]models.CashFlow, 0)
	for _, c := range m.st.cashFlows {
		if c.UserID != userID {
			continue
		}
		if listID != nil && !models.SameList(c.ListID, listID) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
