package service

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlotLocksExclusive(t *testing.T) {
	l := newSlotLocks()

	var (
		wg     sync.WaitGroup
		inside atomic.Int32
		peak   atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Alternate argument order, overlapping on slot 2
			var unlock func()
			if i%2 == 0 {
				unlock = l.lock(1, 2)
			} else {
				unlock = l.lock(2, 3)
			}
			n := inside.Add(1)
			if n > peak.Load() {
				peak.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak.Load())
	assert.Zero(t, l.size(), "entries must be released")
}

func TestSlotLocksDisjoint(t *testing.T) {
	l := newSlotLocks()

	unlockA := l.lock(1, 2)
	done := make(chan struct{})
	go func() {
		unlock := l.lock(4, 3)
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disjoint pair blocked")
	}
	unlockA()
}

func TestSlotLocksDuplicateIDs(t *testing.T) {
	l := newSlotLocks()
	unlock := l.lock(5, 5)
	assert.Equal(t, 1, l.size())
	unlock()
	assert.Zero(t, l.size())
}
