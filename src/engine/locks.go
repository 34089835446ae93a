package engine

import (
	"sync"

	"github.com/google/uuid"
)

// accountLocks hands out one mutex per account so fills on the same
// account are sequentially consistent while fills on different accounts
// proceed in parallel. There is no global lock on the fill path.
type accountLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (l *accountLocks) get(accountID uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[accountID] = lock
	}

	return lock
}
