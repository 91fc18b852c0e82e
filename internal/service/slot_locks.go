package service

import (
	"slices"
	"sync"
)

// slotLocks - мьютексы по ID слота внутри процесса. Захватываются в порядке
// возрастания ID, поэтому две операции над пересекающимися парами не
// могут заблокировать друг друга.
type slotLocks struct {
	mu    sync.Mutex
	locks map[int64]*slotLock
}

type slotLock struct {
	sync.Mutex
	refs int
}

func newSlotLocks() *slotLocks {
	return &slotLocks{locks: make(map[int64]*slotLock)}
}

// lock захватывает мьютексы всех переданных слотов и возвращает функцию освобождения
func (l *slotLocks) lock(ids ...int64) (unlock func()) {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	held := make([]*slotLock, 0, len(ids))
	for _, id := range ids {
		m := l.acquire(id)
		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
			l.release(ids[i])
		}
	}
}

func (l *slotLocks) acquire(id int64) *slotLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[id]
	if !ok {
		m = &slotLock{}
		l.locks[id] = m
	}
	m.refs++
	return m
}

func (l *slotLocks) release(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m := l.locks[id]
	m.refs--
	if m.refs == 0 {
		delete(l.locks, id)
	}
}

// size возвращает число активных записей, для тестов
func (l *slotLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
