package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/xiangqi-server/internal/domain"
)

const DefaultTTL = 24 * time.Hour

// RedisStore keeps JSON records in Redis. Rooms and games expire after ttl
// of inactivity; users do not expire.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore parses redisURL and pings the server.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis store")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreWithClient(rdb, ttl), nil
}

func NewRedisStoreWithClient(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Client() *redis.Client { return s.rdb }

func (s *RedisStore) Close() error { return s.rdb.Close() }

func roomKey(id string) string       { return "xq:room:" + id }
func roomCodeKey(code string) string { return "xq:room:code:" + normName(code) }
func roomSeqKey() string             { return "xq:room:seq" }
func gameKey(id string) string       { return "xq:game:" + id }
func userKey(id string) string       { return "xq:user:" + id }
func userNameKey(name string) string { return "xq:user:name:" + normName(name) }

func getJSON[T any](ctx context.Context, rdb redis.Cmdable, key string) (*T, error) {
	raw, err := rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &v, nil
}

func (s *RedisStore) AddRoom(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	if room == nil || room.ID == "" {
		return nil, ErrMissingID
	}
	n, err := s.rdb.Incr(ctx, roomSeqKey()).Result()
	if err != nil {
		return nil, err
	}
	stored := room.Clone()
	stored.Number = n
	stored.Code = RoomCode(n)
	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}
	ok, err := s.rdb.SetNX(ctx, roomKey(stored.ID), raw, s.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDuplicate
	}
	if err := s.rdb.Set(ctx, roomCodeKey(stored.Code), stored.ID, s.ttl).Err(); err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *RedisStore) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	return getJSON[domain.Room](ctx, s.rdb, roomKey(id))
}

func (s *RedisStore) GetRoomByCode(ctx context.Context, code string) (*domain.Room, error) {
	id, err := s.rdb.Get(ctx, roomCodeKey(code)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.GetRoom(ctx, id)
}

func (s *RedisStore) SaveRoom(ctx context.Context, room *domain.Room) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetXX(ctx, roomKey(room.ID), raw, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	// 코드 인덱스 TTL도 방과 동일하게 갱신
	_ = s.rdb.Expire(ctx, roomCodeKey(room.Code), s.ttl).Err()
	return nil
}

func (s *RedisStore) RemoveRoom(ctx context.Context, id string) error {
	r, err := s.GetRoom(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.rdb.Del(ctx, roomKey(id), roomCodeKey(r.Code)).Err()
}

func (s *RedisStore) AddGame(ctx context.Context, game *domain.Game) error {
	raw, err := json.Marshal(game)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, gameKey(game.ID), raw, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

func (s *RedisStore) GetGame(ctx context.Context, id string) (*domain.Game, error) {
	return getJSON[domain.Game](ctx, s.rdb, gameKey(id))
}

func (s *RedisStore) SaveGame(ctx context.Context, game *domain.Game) error {
	raw, err := json.Marshal(game)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetXX(ctx, gameKey(game.ID), raw, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// AddUser claims the username and writes the user in one transaction.
func (s *RedisStore) AddUser(ctx context.Context, user *domain.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	nameK := userNameKey(user.Username)
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, nameK).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrUsernameTaken
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, userKey(user.ID), raw, 0)
			p.Set(ctx, nameK, user.ID, 0)
			return nil
		})
		return err
	}, nameK)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrUsernameTaken
	}
	return err
}

func (s *RedisStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return getJSON[domain.User](ctx, s.rdb, userKey(id))
}

func (s *RedisStore) FindUserByName(ctx context.Context, username string) (*domain.User, error) {
	id, err := s.rdb.Get(ctx, userNameKey(username)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, id)
}

func (s *RedisStore) SaveUser(ctx context.Context, user *domain.User) error {
	prev, err := s.GetUser(ctx, user.ID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if normName(prev.Username) != normName(user.Username) {
		ok, err := s.rdb.SetNX(ctx, userNameKey(user.Username), user.ID, 0).Result()
		if err != nil {
			return err
		}
		if !ok {
			return ErrUsernameTaken
		}
		_ = s.rdb.Del(ctx, userNameKey(prev.Username)).Err()
	}
	return s.rdb.Set(ctx, userKey(user.ID), raw, 0).Err()
}

// maxUpdateAttempts bounds the WATCH retries of UpdateUser under contention.
// 동시 갱신 감지(TxFailedErr) 시 재시도.
const maxUpdateAttempts = 16

func (s *RedisStore) UpdateUser(ctx context.Context, id string, fn func(*domain.User) error) error {
	key := userKey(id)
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if err == redis.Nil {
				return ErrNotFound
			}
			if err != nil {
				return err
			}
			cur := &domain.User{}
			if err := json.Unmarshal(raw, cur); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			prevID, prevName := cur.ID, cur.Username
			if err := fn(cur); err != nil {
				return err
			}
			cur.ID, cur.Username = prevID, prevName
			raw, err = json.Marshal(cur)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.Set(ctx, key, raw, 0)
				return nil
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update user %s: %w", id, redis.TxFailedErr)
}
