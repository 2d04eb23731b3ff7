package httpapi

import (
	"github.com/park285/xiangqi-server/internal/domain"
	"github.com/park285/xiangqi-server/internal/room"
	"github.com/park285/xiangqi-server/internal/session"
	"github.com/park285/xiangqi-server/internal/xiangqi"
	"github.com/park285/xiangqi-server/pkg/xqdto"
)

func GameView(g *domain.Game) *xqdto.GameView {
	if g == nil {
		return nil
	}
	moves := make([]xqdto.MoveView, 0, len(g.Moves))
	for _, m := range g.Moves {
		moves = append(moves, xqdto.MoveView{
			Ply:         m.Ply,
			From:        m.From,
			To:          m.To,
			Notation:    xiangqi.Move{From: m.From, To: m.To}.String(),
			FENAfter:    m.FENAfter,
			ByUserID:    m.ByUserID,
			TimeSpentMs: m.TimeSpentMs,
		})
	}
	v := &xqdto.GameView{
		ID:           g.ID,
		RoomID:       g.RoomID,
		FEN:          g.CurrentFEN,
		Moves:        moves,
		Result:       string(g.Result),
		ResultReason: g.ResultReason,
		Clock: xqdto.ClockView{
			RedMs:      g.Clock.RedMs,
			BlackMs:    g.Clock.BlackMs,
			SideToMove: g.Clock.SideToMove.String(),
			TurnStart:  g.Clock.TurnStart,
		},
		StartedAt: g.StartedAt,
	}
	if !g.FinishedAt.IsZero() {
		at := g.FinishedAt
		v.FinishedAt = &at
	}
	return v
}

func RoomView(r *domain.Room) xqdto.RoomView {
	return xqdto.RoomView{
		ID:               r.ID,
		Code:             r.Code,
		Name:             r.Name,
		OwnerID:          r.OwnerID,
		Visibility:       string(r.Settings.Visibility),
		HasPassword:      r.Settings.PasswordHash != "",
		SpectatorLimit:   r.Settings.SpectatorLimit,
		BaseSeconds:      r.Settings.BaseSeconds,
		IncrementSeconds: r.Settings.IncrementSeconds,
		AllowUndo:        r.Settings.AllowUndo,
		Rated:            r.Settings.Rated,
		VsRobot:          r.Settings.VsRobot,
		RobotSide:        r.Settings.RobotSide,
		RedID:            r.RedID,
		BlackID:          r.BlackID,
		Playing:          r.Playing,
		GameID:           r.GameID,
	}
}

func LobbyView(l *room.LobbyView) xqdto.LobbyView {
	return xqdto.LobbyView{
		RoomID:     l.RoomID,
		Code:       l.Code,
		Name:       l.Name,
		RedID:      l.RedID,
		BlackID:    l.BlackID,
		Waiting:    l.Waiting,
		Spectators: l.Spectators,
		Playing:    l.Playing,
		IsFull:     l.IsFull,
		CanStart:   l.CanStart,
	}
}

func UserView(u *domain.User) xqdto.UserView {
	return xqdto.UserView{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName}
}

// gameEvents converts session payloads to their wire views before they reach
// the push hub.
type gameEvents struct {
	next session.Notifier
}

// NewGameNotifier wraps next so game events carry xqdto.GameView payloads.
func NewGameNotifier(next session.Notifier) session.Notifier {
	return gameEvents{next: next}
}

func (n gameEvents) Broadcast(roomID, event string, payload any) {
	if g, ok := payload.(*domain.Game); ok {
		n.next.Broadcast(roomID, event, GameView(g))
		return
	}
	n.next.Broadcast(roomID, event, payload)
}
