package models

import (
	"sync"
)

type userLock struct {
	mu   sync.Mutex
	refs int // holders plus waiters
}

// UserLocks serializes portfolio mutations per user.
// Uses per-user locks instead of a global lock; an entry lives only while
// some caller holds or waits on it.
type UserLocks struct {
	userLocks map[int64]*userLock // Map of user_id → lock
	mapMutex  sync.Mutex          // Protects the map and refcounts
}

// NewUserLocks creates a new lock manager
func NewUserLocks() *UserLocks {
	return &UserLocks{
		userLocks: make(map[int64]*userLock),
	}
}

// Lock locks the portfolio for a specific user
func (ul *UserLocks) Lock(userID int64) {
	ul.mapMutex.Lock()
	l := ul.userLocks[userID]
	if l == nil {
		l = &userLock{}
		ul.userLocks[userID] = l
	}
	l.refs++
	ul.mapMutex.Unlock()

	l.mu.Lock()
}

// Unlock unlocks the portfolio for a specific user and drops its entry
// once nobody else is waiting.
func (ul *UserLocks) Unlock(userID int64) {
	ul.mapMutex.Lock()
	defer ul.mapMutex.Unlock()

	l := ul.userLocks[userID]
	if l == nil {
		return
	}
	l.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(ul.userLocks, userID)
	}
}

// Len reports how many users currently have a lock entry.
func (ul *UserLocks) Len() int {
	ul.mapMutex.Lock()
	defer ul.mapMutex.Unlock()
	return len(ul.userLocks)
}
