package xqdto

import "time"

type ClockView struct {
	RedMs      int64     `json:"red_ms"`
	BlackMs    int64     `json:"black_ms"`
	SideToMove string    `json:"side_to_move"`
	TurnStart  time.Time `json:"turn_start"`
}

type MoveView struct {
	Ply         int    `json:"ply"`
	From        int    `json:"from"`
	To          int    `json:"to"`
	Notation    string `json:"notation"`
	FENAfter    string `json:"fen_after"`
	ByUserID    string `json:"by_user_id"`
	TimeSpentMs int64  `json:"time_spent_ms"`
}

type GameView struct {
	ID           string     `json:"id"`
	RoomID       string     `json:"room_id"`
	FEN          string     `json:"fen"`
	Moves        []MoveView `json:"moves"`
	Result       string     `json:"result"`
	ResultReason string     `json:"result_reason,omitempty"`
	Clock        ClockView  `json:"clock"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// LastMove returns the most recent ply, or nil before the first one.
func (g *GameView) LastMove() *MoveView {
	if g == nil || len(g.Moves) == 0 {
		return nil
	}
	return &g.Moves[len(g.Moves)-1]
}

type SnapshotResponse struct {
	Game *GameView `json:"game"`
}
