package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/xiangqi-server/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

const schemaSQL = `CREATE TABLE IF NOT EXISTS xiangqi_games (
    game_id     TEXT PRIMARY KEY,
    room_id     TEXT NOT NULL,
    room_code   TEXT NOT NULL,
    red_id      TEXT NOT NULL,
    black_id    TEXT NOT NULL,
    vs_robot    BOOLEAN NOT NULL DEFAULT FALSE,
    result      TEXT NOT NULL,
    reason      TEXT NOT NULL,
    moves       TEXT NOT NULL,
    final_fen   TEXT NOT NULL,
    ply_count   INTEGER NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL,
    duration_ms BIGINT NOT NULL
)`

func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, schemaSQL)
	return err
}

// SaveRecord upserts a finished game.
// 같은 게임이 재전송되어도 한 행만 유지(game_id 기준 upsert).
func (r *Repository) SaveRecord(ctx context.Context, rec Record) error {
	if r == nil || r.db == nil {
		return nil
	}
	q := `INSERT INTO xiangqi_games (
        game_id, room_id, room_code, red_id, black_id, vs_robot,
        result, reason, moves, final_fen, ply_count,
        started_at, finished_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
      ) ON CONFLICT (game_id) DO UPDATE SET
        room_id=EXCLUDED.room_id,
        room_code=EXCLUDED.room_code,
        red_id=EXCLUDED.red_id,
        black_id=EXCLUDED.black_id,
        vs_robot=EXCLUDED.vs_robot,
        result=EXCLUDED.result,
        reason=EXCLUDED.reason,
        moves=EXCLUDED.moves,
        final_fen=EXCLUDED.final_fen,
        ply_count=EXCLUDED.ply_count,
        started_at=EXCLUDED.started_at,
        finished_at=EXCLUDED.finished_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		rec.GameID, rec.RoomID, rec.RoomCode, rec.RedID, rec.BlackID, rec.VsRobot,
		rec.Result, rec.Reason, rec.Moves, rec.FinalFEN, rec.PlyCount,
		rec.StartedAt, rec.FinishedAt, rec.DurationMs(),
	)
	return err
}

// GameFinished writes the game synchronously.
func (r *Repository) GameFinished(ctx context.Context, room *domain.Room, game *domain.Game) error {
	return r.SaveRecord(ctx, NewRecord(room, game))
}
