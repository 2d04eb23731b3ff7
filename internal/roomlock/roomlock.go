// Package roomlock serializes writers per room id. Different rooms never
// contend.
package roomlock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

type Locker struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Locker { return &Locker{entries: make(map[string]*entry)} }

// Lock blocks until the caller holds roomID's section and returns the
// release func. Entries are dropped once no goroutine holds or waits on them.
func (l *Locker) Lock(roomID string) (unlock func()) {
	l.mu.Lock()
	e, ok := l.entries[roomID]
	if !ok {
		e = &entry{}
		l.entries[roomID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.entries, roomID)
			}
			l.mu.Unlock()
		})
	}
}

// Len reports how many rooms currently have holders or waiters.
// 테스트에서 엔트리 누수 확인용.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
