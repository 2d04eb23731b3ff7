package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/park285/xiangqi-server/internal/domain"
	"github.com/park285/xiangqi-server/internal/store"
	"github.com/park285/xiangqi-server/internal/xiangqi"
)

// finalize records the terminal result, frees the room for a new game and
// counts the game once for each seated player. The caller holds the room
// lock and g is still ongoing.
func (o *Orchestrator) finalize(ctx context.Context, r *domain.Room, g *domain.Game, result domain.GameResult, reason string, now time.Time) error {
	g.Result = result
	g.ResultReason = reason
	g.FinishedAt = now
	if err := o.games.SaveGame(ctx, g); err != nil {
		return err
	}
	r.Playing = false
	if err := o.rooms.SaveRoom(ctx, r); err != nil {
		return err
	}

	// 종료 처리는 방 락 안에서 한 번만 실행되므로 전적도 한 번만 반영된다.
	o.bumpStats(ctx, r.Seat(xiangqi.Red), xiangqi.Red, result)
	o.bumpStats(ctx, r.Seat(xiangqi.Black), xiangqi.Black, result)

	o.logger.Info("game_end",
		zap.String("room_id", r.ID),
		zap.String("game_id", g.ID),
		zap.String("result", string(result)),
		zap.String("reason", reason),
		zap.Int("plies", len(g.Moves)),
	)

	if o.sink != nil {
		if err := o.sink.GameFinished(ctx, r.Clone(), g.Clone()); err != nil {
			o.logger.Warn("game_archive_failed", zap.String("game_id", g.ID), zap.Error(err))
		}
	}
	o.broadcast(r.ID, EventGameEnded, g)
	return nil
}

// bumpStats 는 한 좌석의 전적을 한 번 올린다. 빈 좌석이나 프로필 없는 유저는 건너뜀.
func (o *Orchestrator) bumpStats(ctx context.Context, userID string, side xiangqi.Side, result domain.GameResult) {
	if userID == "" {
		return
	}
	err := o.users.UpdateUser(ctx, userID, func(u *domain.User) error {
		u.Stats.Games++
		switch result {
		case domain.ResultDraw:
			u.Stats.Draws++
		case domain.WinFor(side):
			u.Stats.Wins++
		default:
			u.Stats.Losses++
		}
		return nil
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		o.logger.Debug("stats_user_skipped", zap.String("user_id", userID))
	case err != nil:
		o.logger.Warn("stats_save_failed", zap.String("user_id", userID), zap.Error(err))
	}
}
