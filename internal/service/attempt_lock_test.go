package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func lockEntries(l *attemptLocks) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func TestAttemptLocksReleaseOnUnlock(t *testing.T) {
	locks := newAttemptLocks()

	unlock := locks.lock(7)
	assert.Equal(t, 1, lockEntries(locks))
	unlock()
	assert.Equal(t, 0, lockEntries(locks))

	// Re-locking after cleanup creates a fresh entry.
	unlock = locks.lock(7)
	assert.Equal(t, 1, lockEntries(locks))
	unlock()
	assert.Equal(t, 0, lockEntries(locks))
}

func TestAttemptLocksSerializeAndCleanUp(t *testing.T) {
	locks := newAttemptLocks()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock(42)
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, lockEntries(locks))
}

func TestAttemptLocksIndependentIDs(t *testing.T) {
	locks := newAttemptLocks()

	unlockA := locks.lock(1)
	unlockB := locks.lock(2)
	assert.Equal(t, 2, lockEntries(locks))

	unlockA()
	assert.Equal(t, 1, lockEntries(locks))
	unlockB()
	assert.Equal(t, 0, lockEntries(locks))
}
