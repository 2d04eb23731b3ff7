// Package session runs games inside rooms: starting a game, validating and
// applying moves, the automated reply, time forfeiture and resignation.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/xiangqi-server/internal/clock"
	"github.com/park285/xiangqi-server/internal/domain"
	"github.com/park285/xiangqi-server/internal/obslog"
	"github.com/park285/xiangqi-server/internal/robot"
	"github.com/park285/xiangqi-server/internal/roomlock"
	"github.com/park285/xiangqi-server/internal/store"
	"github.com/park285/xiangqi-server/internal/xiangqi"
	"github.com/park285/xiangqi-server/pkg/xqdto"
)

const (
	EventGameStarted = xqdto.EventGameStarted
	EventMoveApplied = xqdto.EventMoveApplied
	EventGameEnded   = xqdto.EventGameEnded
)

// ResultSink receives every game once it reaches a terminal result.
type ResultSink interface {
	GameFinished(ctx context.Context, room *domain.Room, game *domain.Game) error
}

// Notifier fans game events out to a room's watchers.
type Notifier interface {
	Broadcast(roomID, event string, payload any)
}

type Deps struct {
	Rooms    store.RoomRepository
	Games    store.GameRepository
	Users    store.UserRepository
	Robot    robot.Chooser
	Clock    clock.Source
	Locks    *roomlock.Locker
	Logger   *zap.Logger
	Sink     ResultSink
	Notifier Notifier
}

type Orchestrator struct {
	rooms    store.RoomRepository
	games    store.GameRepository
	users    store.UserRepository
	robot    robot.Chooser
	clock    clock.Source
	locks    *roomlock.Locker
	logger   *zap.Logger
	sink     ResultSink
	notifier Notifier
}

func New(d Deps) (*Orchestrator, error) {
	if d.Rooms == nil || d.Games == nil || d.Users == nil {
		return nil, errors.New("session: room, game and user repositories are required")
	}
	o := &Orchestrator{
		rooms:    d.Rooms,
		games:    d.Games,
		users:    d.Users,
		robot:    d.Robot,
		clock:    d.Clock,
		locks:    d.Locks,
		logger:   d.Logger,
		sink:     d.Sink,
		notifier: d.Notifier,
	}
	if o.robot == nil {
		eng, err := robot.New("")
		if err != nil {
			return nil, fmt.Errorf("default robot: %w", err)
		}
		o.robot = eng
	}
	if o.clock == nil {
		o.clock = clock.System{}
	}
	if o.locks == nil {
		o.locks = roomlock.New()
	}
	if o.logger == nil {
		o.logger = obslog.L()
	}
	return o, nil
}

func (o *Orchestrator) loadRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	r, err := o.rooms.GetRoom(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	return r, err
}

// loadGame returns the room's linked game, or nil when there is none.
func (o *Orchestrator) loadGame(ctx context.Context, r *domain.Room) (*domain.Game, error) {
	if r.GameID == "" {
		return nil, nil
	}
	g, err := o.games.GetGame(ctx, r.GameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, r.GameID)
	}
	return g, err
}

// seatFilled treats the robot's side as occupied.
func seatFilled(r *domain.Room, side xiangqi.Side) bool {
	return r.Seat(side) != "" || r.Settings.RobotPlays(side)
}

// Start opens a new game in the room. A robot playing red replies at once.
func (o *Orchestrator) Start(ctx context.Context, roomID string) (*domain.Game, error) {
	unlock := o.locks.Lock(roomID)
	defer unlock()

	r, err := o.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !seatFilled(r, xiangqi.Red) || !seatFilled(r, xiangqi.Black) {
		return nil, ErrSeatsNotFilled
	}
	if r.Playing {
		return nil, ErrAlreadyPlaying
	}

	now := o.clock.Now()
	g := &domain.Game{
		ID:         uuid.NewString(),
		RoomID:     r.ID,
		CurrentFEN: xiangqi.StartFEN,
		Moves:      []domain.MoveRecord{},
		Result:     domain.ResultOngoing,
		Clock:      clock.Start(r.Settings, now),
		StartedAt:  now,
	}
	if err := o.games.AddGame(ctx, g); err != nil {
		return nil, err
	}
	r.GameID = g.ID
	r.Playing = true
	if err := o.rooms.SaveRoom(ctx, r); err != nil {
		return nil, err
	}

	o.logger.Info("game_start",
		zap.String("room_id", r.ID),
		zap.String("game_id", g.ID),
		zap.String("red_id", r.RedID),
		zap.String("black_id", r.BlackID),
		zap.Bool("vs_robot", r.Settings.VsRobot),
	)
	o.broadcast(r.ID, EventGameStarted, g)

	if err := o.robotReply(ctx, r, g); err != nil {
		return nil, err
	}
	return g.Clone(), nil
}

// TryMove validates and applies a move by moverID. A rejection is returned
// as a domain.Rejection together with the current game, so callers can show
// the state that caused it. A forfeiture on time comes back as the finished
// game plus ErrFlaggedOnTime.
func (o *Orchestrator) TryMove(ctx context.Context, roomID, moverID string, from, to int) (*domain.Game, error) {
	mv := xiangqi.Move{From: from, To: to}
	if !mv.Valid() {
		return nil, fmt.Errorf("%w: %d -> %d", ErrInvalidSquare, from, to)
	}

	unlock := o.locks.Lock(roomID)
	defer unlock()

	r, err := o.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	g, err := o.loadGame(ctx, r)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNoActiveGame
	}
	if g.Finished() {
		return g, ErrGameFinished
	}

	pos, err := xiangqi.ParseFEN(g.CurrentFEN)
	if err != nil {
		return nil, fmt.Errorf("stored position for game %s: %w", g.ID, err)
	}
	// 턴 검증: 둘 다 시계를 건드리지 않음
	if moverID == "" || r.Seat(pos.SideToMove) != moverID {
		o.rejected(r, g, moverID, ErrNotYourTurn)
		return g, ErrNotYourTurn
	}
	if !xiangqi.IsLegal(pos, mv) {
		o.rejected(r, g, moverID, ErrIllegalMove)
		return g, ErrIllegalMove
	}

	now := o.clock.Now()
	o.touchUser(ctx, moverID, now)

	// 시간 차감 후 플래그 확인. 시간패면 수는 적용하지 않는다.

	spent := clock.Debit(&g.Clock, now)
	if loser, flagged := clock.Flagged(&g.Clock); flagged {
		clock.Clamp(&g.Clock)
		if err := o.finalize(ctx, r, g, domain.WinFor(loser.Opponent()), domain.ReasonTime, now); err != nil {
			return nil, err
		}
		return g.Clone(), ErrFlaggedOnTime
	}

	// 적용 + 증분 + 턴 전환
	o.play(g, pos, mv, moverID, spent, r.Settings.IncrementSeconds, now)
	if err := o.games.SaveGame(ctx, g); err != nil {
		return nil, err
	}
	o.logger.Info("game_move",
		zap.String("room_id", r.ID),
		zap.String("game_id", g.ID),
		zap.String("user_id", moverID),
		zap.String("move", mv.String()),
		zap.Int("ply", len(g.Moves)),
		zap.Int64("spent_ms", spent),
	)
	o.broadcast(r.ID, EventMoveApplied, g)

	if err := o.robotReply(ctx, r, g); err != nil {
		return nil, err
	}
	return g.Clone(), nil
}

// play applies mv to pos, records it and passes the turn.
func (o *Orchestrator) play(g *domain.Game, pos xiangqi.Position, mv xiangqi.Move, byUserID string, spentMs int64, incrementSeconds int, now time.Time) {
	after := xiangqi.Apply(pos, mv)
	g.CurrentFEN = after.FEN()
	g.Moves = append(g.Moves, domain.MoveRecord{
		Ply:         len(g.Moves) + 1,
		From:        mv.From,
		To:          mv.To,
		FENAfter:    g.CurrentFEN,
		ByUserID:    byUserID,
		TimeSpentMs: spentMs,
	})
	clock.Pass(&g.Clock, incrementSeconds, now)
}

// robotReply plays one automated move when the robot is on move. The robot's
// thinking time is recorded but not debited.
func (o *Orchestrator) robotReply(ctx context.Context, r *domain.Room, g *domain.Game) error {
	if g.Finished() || !r.Settings.RobotPlays(g.Clock.SideToMove) {
		return nil
	}
	started := o.clock.Now()
	mv, err := o.robot.ChooseMove(ctx, g.CurrentFEN)
	if err != nil {
		o.logger.Warn("robot_choose_failed", zap.String("room_id", r.ID), zap.String("game_id", g.ID), zap.Error(err))
		return nil
	}
	if mv == nil {
		o.logger.Info("robot_no_move", zap.String("room_id", r.ID), zap.String("game_id", g.ID))
		return nil
	}
	pos, err := xiangqi.ParseFEN(g.CurrentFEN)
	if err != nil {
		return fmt.Errorf("stored position for game %s: %w", g.ID, err)
	}
	if !xiangqi.IsLegal(pos, *mv) {
		o.logger.Warn("robot_illegal_move", zap.String("room_id", r.ID), zap.String("move", mv.String()))
		return nil
	}

	now := o.clock.Now()
	spent := now.Sub(started).Milliseconds()
	o.play(g, pos, *mv, domain.RobotUserID, spent, r.Settings.IncrementSeconds, now)
	if err := o.games.SaveGame(ctx, g); err != nil {
		return err
	}
	o.logger.Info("game_robot_move",
		zap.String("room_id", r.ID),
		zap.String("game_id", g.ID),
		zap.String("move", mv.String()),
		zap.Int("ply", len(g.Moves)),
	)
	o.broadcast(r.ID, EventMoveApplied, g)
	return nil
}

// Resign ends the game in favour of the resigner's opponent.
func (o *Orchestrator) Resign(ctx context.Context, roomID, userID string) (*domain.Game, error) {
	unlock := o.locks.Lock(roomID)
	defer unlock()

	r, err := o.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	g, err := o.loadGame(ctx, r)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNoActiveGame
	}
	if g.Finished() {
		return g, ErrGameFinished
	}
	side, seated := r.SeatOf(userID)
	if !seated || userID == "" {
		o.rejected(r, g, userID, ErrNotSeated)
		return g, ErrNotSeated
	}
	if err := o.finalize(ctx, r, g, domain.WinFor(side.Opponent()), domain.ReasonResign, o.clock.Now()); err != nil {
		return nil, err
	}
	return g.Clone(), nil
}

// Snapshot returns the room's linked game, or nil when the room has none.
func (o *Orchestrator) Snapshot(ctx context.Context, roomID string) (*domain.Game, error) {
	r, err := o.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return o.loadGame(ctx, r)
}

func (o *Orchestrator) rejected(r *domain.Room, g *domain.Game, userID string, err error) {
	rej, _ := domain.AsRejection(err)
	o.logger.Info("game_action_rejected",
		zap.String("room_id", r.ID),
		zap.String("game_id", g.ID),
		zap.String("user_id", userID),
		zap.String("code", rej.Code),
	)
}

func (o *Orchestrator) broadcast(roomID, event string, g *domain.Game) {
	if o.notifier == nil {
		return
	}
	o.notifier.Broadcast(roomID, event, g.Clone())
}

// touchUser records daily activity for a mover that has a profile.
// 같은 유저가 여러 방에서 동시에 둘 수 있으므로 방 락이 아닌 원자적 갱신을 사용.
func (o *Orchestrator) touchUser(ctx context.Context, userID string, now time.Time) {
	err := o.users.UpdateUser(ctx, userID, func(u *domain.User) error {
		u.Stats.BumpActivity(now)
		u.LastActiveAt = now
		return nil
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		o.logger.Warn("user_activity_save_failed", zap.String("user_id", userID), zap.Error(err))
	}
}
