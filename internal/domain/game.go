package domain

import (
	"time"

	"github.com/park285/xiangqi-server/internal/xiangqi"
)

// GameResult is terminal once it leaves ResultOngoing.
type GameResult string

const (
	ResultOngoing  GameResult = "ongoing"
	ResultRedWin   GameResult = "red_win"
	ResultBlackWin GameResult = "black_win"
	ResultDraw     GameResult = "draw"
)

// WinFor returns the result in which side wins.
func WinFor(side xiangqi.Side) GameResult {
	if side == xiangqi.Black {
		return ResultBlackWin
	}
	return ResultRedWin
}

const (
	ReasonTime   = "time"
	ReasonResign = "resign"
)

// RobotUserID marks moves played by the automated opponent.
const RobotUserID = ""

// ClockState is the per-game timing record.
type ClockState struct {
	RedMs      int64        `json:"red_ms"`
	BlackMs    int64        `json:"black_ms"`
	SideToMove xiangqi.Side `json:"side_to_move"`
	TurnStart  time.Time    `json:"turn_start"`
}

func (c *ClockState) Remaining(side xiangqi.Side) int64 {
	if side == xiangqi.Black {
		return c.BlackMs
	}
	return c.RedMs
}

// MoveRecord is one played ply.
type MoveRecord struct {
	Ply         int    `json:"ply"`
	From        int    `json:"from"`
	To          int    `json:"to"`
	FENAfter    string `json:"fen_after"`
	ByUserID    string `json:"by_user_id"`
	TimeSpentMs int64  `json:"time_spent_ms"`
}

// Game is one match owned by a room.
type Game struct {
	ID           string       `json:"id"`
	RoomID       string       `json:"room_id"`
	CurrentFEN   string       `json:"current_fen"`
	Moves        []MoveRecord `json:"moves"`
	Result       GameResult   `json:"result"`
	ResultReason string       `json:"result_reason,omitempty"`
	Clock        ClockState   `json:"clock"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at,omitempty"`
}

func (g *Game) Finished() bool { return g.Result != ResultOngoing }

// LastMove returns the most recent record, or nil before the first ply.
func (g *Game) LastMove() *MoveRecord {
	if len(g.Moves) == 0 {
		return nil
	}
	return &g.Moves[len(g.Moves)-1]
}

func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	c := *g
	c.Moves = append([]MoveRecord(nil), g.Moves...)
	return &c
}
