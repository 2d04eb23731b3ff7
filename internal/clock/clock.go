// Package clock holds the time source and the per-game clock discipline.
// Time is only debited when a move is processed; nothing ticks in the
// background.
package clock

import (
	"sync"
	"time"

	"github.com/park285/xiangqi-server/internal/domain"
	"github.com/park285/xiangqi-server/internal/xiangqi"
)

// Source supplies the current time.
type Source interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Manual is a settable Source for tests.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(start time.Time) *Manual { return &Manual{now: start.UTC()} }

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t.UTC()
	m.mu.Unlock()
}

func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Start gives both sides the base time with red to move.
func Start(s domain.RoomSettings, now time.Time) domain.ClockState {
	base := int64(s.BaseSeconds) * 1000
	return domain.ClockState{
		RedMs:      base,
		BlackMs:    base,
		SideToMove: xiangqi.Red,
		TurnStart:  now,
	}
}

// Debit charges the side to move for the time since the turn started and
// returns the charged milliseconds.
func Debit(c *domain.ClockState, now time.Time) int64 {
	if c.TurnStart.IsZero() {
		return 0
	}
	spent := now.Sub(c.TurnStart).Milliseconds()
	if spent < 0 {
		spent = 0
	}
	if c.SideToMove == xiangqi.Black {
		c.BlackMs -= spent
	} else {
		c.RedMs -= spent
	}
	return spent
}

// Flagged reports the side whose time has run out, if any.
// 0ms 는 아직 시간패가 아님(음수일 때만).
func Flagged(c *domain.ClockState) (xiangqi.Side, bool) {
	switch {
	case c.RedMs < 0:
		return xiangqi.Red, true
	case c.BlackMs < 0:
		return xiangqi.Black, true
	}
	return xiangqi.Red, false
}

// Pass credits the increment to the side that just moved, hands the turn to
// the other side and restarts the turn timer.
func Pass(c *domain.ClockState, incrementSeconds int, now time.Time) {
	inc := int64(incrementSeconds) * 1000
	if c.SideToMove == xiangqi.Black {
		c.BlackMs += inc
	} else {
		c.RedMs += inc
	}
	c.SideToMove = c.SideToMove.Opponent()
	c.TurnStart = now
}

// Clamp floors both remaining times at zero once a flag has been settled.
func Clamp(c *domain.ClockState) {
	if c.RedMs < 0 {
		c.RedMs = 0
	}
	if c.BlackMs < 0 {
		c.BlackMs = 0
	}
}
