package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/park285/xiangqi-server/internal/domain"
	"github.com/park285/xiangqi-server/internal/obslog"
)

const (
	TypeArchiveGame = "archive:game"
	QueueName       = "archive"
)

// NewArchiveTask wraps rec as a queue task keyed by game id, so a game is
// enqueued at most once while its task is retained.
func NewArchiveTask(rec Record) (*asynq.Task, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeArchiveGame, payload,
		asynq.Queue(QueueName),
		asynq.TaskID("game:"+rec.GameID),
		asynq.MaxRetry(10),
		asynq.Retention(24*time.Hour),
	), nil
}

// Queue hands finished games to the archive worker.
// 대국 종료 경로에서 DB 쓰기를 분리하기 위해 사용.
type Queue struct {
	client *asynq.Client
	logger *zap.Logger
}

func NewQueue(opt asynq.RedisConnOpt, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = obslog.L()
	}
	return &Queue{client: asynq.NewClient(opt), logger: logger}
}

func (q *Queue) Close() error { return q.client.Close() }

func (q *Queue) GameFinished(ctx context.Context, room *domain.Room, game *domain.Game) error {
	task, err := NewArchiveTask(NewRecord(room, game))
	if err != nil {
		return err
	}
	info, err := q.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue archive task: %w", err)
	}
	q.logger.Info("archive_enqueued", zap.String("game_id", game.ID), zap.String("task_id", info.ID))
	return nil
}

// RecordSaver is the write side used by the worker.
type RecordSaver interface {
	SaveRecord(ctx context.Context, rec Record) error
}

// Worker drains the archive queue into a RecordSaver.
type Worker struct {
	server *asynq.Server
	saver  RecordSaver
	logger *zap.Logger
}

func NewWorker(opt asynq.RedisConnOpt, saver RecordSaver, concurrency int, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = obslog.L()
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	w := &Worker{saver: saver, logger: logger}
	w.server = asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueName: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retry, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Warn("archive_task_failed",
				zap.String("task_type", task.Type()),
				zap.Int("retry", retry),
				zap.Int("max_retry", maxRetry),
				zap.Error(err),
			)
		}),
	})
	return w
}

// ProcessTask implements asynq.Handler.
func (w *Worker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var rec Record
	if err := json.Unmarshal(t.Payload(), &rec); err != nil {
		return fmt.Errorf("decode archive payload: %v: %w", err, asynq.SkipRetry)
	}
	if rec.GameID == "" {
		return fmt.Errorf("archive payload without game id: %w", asynq.SkipRetry)
	}
	if err := w.saver.SaveRecord(ctx, rec); err != nil {
		return fmt.Errorf("save game %s: %w", rec.GameID, err)
	}
	w.logger.Info("archive_saved", zap.String("game_id", rec.GameID), zap.String("result", rec.Result))
	return nil
}

// Start launches the processors in the background; Shutdown stops them.
func (w *Worker) Start() error {
	mux := asynq.NewServeMux()
	mux.Handle(TypeArchiveGame, w)
	if err := w.server.Start(mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
		return err
	}
	w.logger.Info("archive_worker_start")
	return nil
}

func (w *Worker) Shutdown() {
	w.server.Shutdown()
	w.logger.Info("archive_worker_stop")
}
