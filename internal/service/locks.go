package service

import (
	"sync"

	"github.com/google/uuid"
)

// attemptLock serializes work on one attempt. Answer writes hold mu for reading
// plus the question's mutex, so different questions proceed in parallel.
// Marks and position share meta. Submit holds mu exclusively.
type attemptLock struct {
	mu   sync.RWMutex
	meta sync.Mutex

	qmu       sync.Mutex
	questions map[uuid.UUID]*sync.Mutex

	refs int
}

func (l *attemptLock) question(id uuid.UUID) *sync.Mutex {
	l.qmu.Lock()
	defer l.qmu.Unlock()
	m, ok := l.questions[id]
	if !ok {
		m = &sync.Mutex{}
		l.questions[id] = m
	}
	return m
}

// lockTable hands out reference-counted attemptLocks and drops them when the
// last holder releases.
type lockTable struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*attemptLock
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[uuid.UUID]*attemptLock)}
}

func (t *lockTable) acquire(id uuid.UUID) *attemptLock {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[id]
	if !ok {
		l = &attemptLock{questions: make(map[uuid.UUID]*sync.Mutex)}
		t.locks[id] = l
	}
	l.refs++
	return l
}

func (t *lockTable) release(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[id]
	if !ok {
		return
	}
	l.refs--
	if l.refs <= 0 {
		delete(t.locks, id)
	}
}

func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
