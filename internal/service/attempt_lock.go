package service

import "sync"

// attemptLocks serializes mutating operations per attempt ID. A race
// between a late answer and a submit must not corrupt scoring; the
// status-guarded UPDATE in the repository is the durable guard, this keeps
// the common case orderly without DB round trips.
//
// Entries are reference counted: the last unlock for an ID removes its
// entry, so the map only holds attempts with an operation in flight.
type attemptLocks struct {
	mu    sync.Mutex
	locks map[uint]*attemptLock
}

type attemptLock struct {
	mu   sync.Mutex
	refs int
}

func newAttemptLocks() *attemptLocks {
	return &attemptLocks{locks: make(map[uint]*attemptLock)}
}

func (l *attemptLocks) lock(attemptID uint) func() {
	l.mu.Lock()
	entry, ok := l.locks[attemptID]
	if !ok {
		entry = &attemptLock{}
		l.locks[attemptID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, attemptID)
		}
		l.mu.Unlock()
	}
}
