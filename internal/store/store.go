// Package store holds the identifier-keyed records for rooms, games and
// users. Every implementation is safe for concurrent use and hands out
// copies, so callers never share a record with the store.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/park285/xiangqi-server/internal/domain"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrUsernameTaken = errors.New("username already taken")
	ErrDuplicate     = errors.New("record already exists")
	ErrMissingID     = errors.New("record id required")
)

type RoomRepository interface {
	// AddRoom assigns the next room number and code and stores the room.
	AddRoom(ctx context.Context, room *domain.Room) (*domain.Room, error)
	GetRoom(ctx context.Context, id string) (*domain.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*domain.Room, error)
	SaveRoom(ctx context.Context, room *domain.Room) error
	RemoveRoom(ctx context.Context, id string) error
}

type GameRepository interface {
	AddGame(ctx context.Context, game *domain.Game) error
	GetGame(ctx context.Context, id string) (*domain.Game, error)
	SaveGame(ctx context.Context, game *domain.Game) error
}

type UserRepository interface {
	AddUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	FindUserByName(ctx context.Context, username string) (*domain.User, error)
	SaveUser(ctx context.Context, user *domain.User) error
	// UpdateUser applies fn to the stored user in one atomic step. An error
	// from fn aborts the write. The username is not changed here.
	UpdateUser(ctx context.Context, id string, fn func(*domain.User) error) error
}

// Store bundles the three repositories behind one backend.
type Store interface {
	RoomRepository
	GameRepository
	UserRepository
}

func RoomCode(number int64) string { return fmt.Sprintf("room%d", number) }

func normName(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
