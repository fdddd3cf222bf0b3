package attendance

import "sync"

// employeeLocks hands out one mutex per employee and frees it when unused.
type employeeLocks struct {
	mu    sync.Mutex
	locks map[uint]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newEmployeeLocks() *employeeLocks {
	return &employeeLocks{locks: make(map[uint]*lockEntry)}
}

func (l *employeeLocks) lock(employeeID uint) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[employeeID]
	if !ok {
		e = &lockEntry{}
		l.locks[employeeID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, employeeID)
		}
		l.mu.Unlock()
	}
}
