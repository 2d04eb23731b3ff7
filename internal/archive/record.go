// Package archive keeps finished games in PostgreSQL, either written
// directly or handed to a Redis-backed task queue.
package archive

import (
	"strings"
	"time"

	"github.com/park285/xiangqi-server/internal/domain"
	"github.com/park285/xiangqi-server/internal/xiangqi"
)

// Record is the flattened archive row of one finished game.
type Record struct {
	GameID     string    `json:"game_id"`
	RoomID     string    `json:"room_id"`
	RoomCode   string    `json:"room_code"`
	RedID      string    `json:"red_id"`
	BlackID    string    `json:"black_id"`
	VsRobot    bool      `json:"vs_robot"`
	Result     string    `json:"result"`
	Reason     string    `json:"reason"`
	Moves      string    `json:"moves"`
	FinalFEN   string    `json:"final_fen"`
	PlyCount   int       `json:"ply_count"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func NewRecord(room *domain.Room, game *domain.Game) Record {
	moves := make([]string, 0, len(game.Moves))
	for _, m := range game.Moves {
		moves = append(moves, xiangqi.Move{From: m.From, To: m.To}.String())
	}
	return Record{
		GameID:     game.ID,
		RoomID:     room.ID,
		RoomCode:   room.Code,
		RedID:      room.RedID,
		BlackID:    room.BlackID,
		VsRobot:    room.Settings.VsRobot,
		Result:     string(game.Result),
		Reason:     game.ResultReason,
		Moves:      strings.Join(moves, " "),
		FinalFEN:   game.CurrentFEN,
		PlyCount:   len(game.Moves),
		StartedAt:  game.StartedAt,
		FinishedAt: game.FinishedAt,
	}
}

// DurationMs is the wall time between start and finish, never negative.
func (r Record) DurationMs() int64 {
	d := r.FinishedAt.Sub(r.StartedAt).Milliseconds()
	if d < 0 {
		return 0
	}
	return d
}
