package roomlock

import (
	"sync"
	"testing"
	"time"
)

func TestSameRoomIsExclusive(t *testing.T) {
	l := New()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("room-a")
			defer unlock()
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("max concurrent holders = %d", maxSeen)
	}
	if l.Len() != 0 {
		t.Fatalf("entries leaked: %d", l.Len())
	}
}

func TestDifferentRoomsDoNotContend(t *testing.T) {
	l := New()
	unlockA := l.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := l.Lock("b")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("lock on room b blocked behind room a")
	}
}

func TestUnlockIsIdempotent(t *testing.T) {
	l := New()
	unlock := l.Lock("a")
	unlock()
	unlock()
	if l.Len() != 0 {
		t.Fatalf("entries = %d", l.Len())
	}
}
