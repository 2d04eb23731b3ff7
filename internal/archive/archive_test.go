package archive

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/park285/xiangqi-server/internal/domain"
	"github.com/park285/xiangqi-server/internal/xiangqi"
)

func finishedGame() (*domain.Room, *domain.Game) {
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	room := &domain.Room{ID: "r1", Code: "room7", RedID: "alice", BlackID: "bob"}
	game := &domain.Game{
		ID:     "g1",
		RoomID: "r1",
		Moves: []domain.MoveRecord{
			{Ply: 1, From: xiangqi.Index(4, 6), To: xiangqi.Index(4, 5)},
			{Ply: 2, From: xiangqi.Index(0, 3), To: xiangqi.Index(0, 4)},
		},
		CurrentFEN:   "rheakaehr/9/1c5c1/2p1p1p1p/p8/4P4/P1P3P1P/1C5C1/9/RHEAKAEHR r",
		Result:       domain.ResultRedWin,
		ResultReason: domain.ReasonResign,
		StartedAt:    start,
		FinishedAt:   start.Add(90 * time.Second),
	}
	return room, game
}

func TestNewRecord(t *testing.T) {
	room, game := finishedGame()
	rec := NewRecord(room, game)
	require.Equal(t, "e3e4 a6a5", rec.Moves)
	require.Equal(t, 2, rec.PlyCount)
	require.Equal(t, "red_win", rec.Result)
	require.Equal(t, "room7", rec.RoomCode)
	require.Equal(t, int64(90_000), rec.DurationMs())

	rec.FinishedAt = rec.StartedAt.Add(-time.Second)
	require.Zero(t, rec.DurationMs())
}

type memSaver struct {
	saved []Record
	err   error
}

func (m *memSaver) SaveRecord(ctx context.Context, rec Record) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, rec)
	return nil
}

func TestWorkerProcessTask(t *testing.T) {
	saver := &memSaver{}
	w := &Worker{saver: saver, logger: zap.NewNop()}

	room, game := finishedGame()
	task, err := NewArchiveTask(NewRecord(room, game))
	require.NoError(t, err)
	require.Equal(t, TypeArchiveGame, task.Type())

	require.NoError(t, w.ProcessTask(context.Background(), task))
	require.Len(t, saver.saved, 1)
	require.Equal(t, "g1", saver.saved[0].GameID)

	bad := asynq.NewTask(TypeArchiveGame, []byte("{not json"))
	require.ErrorIs(t, w.ProcessTask(context.Background(), bad), asynq.SkipRetry)

	empty, _ := json.Marshal(Record{})
	require.ErrorIs(t, w.ProcessTask(context.Background(), asynq.NewTask(TypeArchiveGame, empty)), asynq.SkipRetry)

	saver.err = errors.New("db down")
	err = w.ProcessTask(context.Background(), task)
	require.Error(t, err)
	require.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestQueueEnqueuesOncePerGame(t *testing.T) {
	mr := miniredis.RunT(t)
	q := NewQueue(asynq.RedisClientOpt{Addr: mr.Addr()}, zap.NewNop())
	defer q.Close()

	room, game := finishedGame()
	ctx := context.Background()
	require.NoError(t, q.GameFinished(ctx, room, game))
	require.NoError(t, q.GameFinished(ctx, room, game))

	pending, err := mr.List("asynq:{" + QueueName + "}:pending")
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestNilRepositoryIsNoop(t *testing.T) {
	var r *Repository
	room, game := finishedGame()
	require.NoError(t, r.GameFinished(context.Background(), room, game))
	require.NoError(t, r.EnsureSchema(context.Background()))
	require.NoError(t, r.Close())
}
