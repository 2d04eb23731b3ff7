package store

import (
	"context"
	"sync"

	"github.com/park285/xiangqi-server/internal/domain"
)

// Memory keeps every record in process. Used when no Redis is configured
// and in tests.
// 반환값은 항상 복사본이라 호출자가 수정해도 저장소에 영향 없음.
type Memory struct {
	mu sync.RWMutex

	roomSeq int64

	rooms      map[string]*domain.Room
	roomByCode map[string]string
	games      map[string]*domain.Game
	users      map[string]*domain.User
	userByName map[string]string
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		rooms:      make(map[string]*domain.Room),
		roomByCode: make(map[string]string),
		games:      make(map[string]*domain.Game),
		users:      make(map[string]*domain.User),
		userByName: make(map[string]string),
	}
}

func (m *Memory) AddRoom(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	if room == nil || room.ID == "" {
		return nil, ErrMissingID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rooms[room.ID]; exists {
		return nil, ErrDuplicate
	}
	m.roomSeq++
	stored := room.Clone()
	stored.Number = m.roomSeq
	stored.Code = RoomCode(stored.Number)
	m.rooms[stored.ID] = stored
	m.roomByCode[normName(stored.Code)] = stored.ID
	return stored.Clone(), nil
}

func (m *Memory) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (m *Memory) GetRoomByCode(ctx context.Context, code string) (*domain.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.roomByCode[normName(code)]
	if !ok {
		return nil, ErrNotFound
	}
	r, ok := m.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (m *Memory) SaveRoom(ctx context.Context, room *domain.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[room.ID]; !ok {
		return ErrNotFound
	}
	m.rooms[room.ID] = room.Clone()
	return nil
}

func (m *Memory) RemoveRoom(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[id]; ok {
		delete(m.roomByCode, normName(r.Code))
		delete(m.rooms, id)
	}
	return nil
}

func (m *Memory) AddGame(ctx context.Context, game *domain.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.games[game.ID]; exists {
		return ErrDuplicate
	}
	m.games[game.ID] = game.Clone()
	return nil
}

func (m *Memory) GetGame(ctx context.Context, id string) (*domain.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return g.Clone(), nil
}

func (m *Memory) SaveGame(ctx context.Context, game *domain.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[game.ID]; !ok {
		return ErrNotFound
	}
	m.games[game.ID] = game.Clone()
	return nil
}

func (m *Memory) AddUser(ctx context.Context, user *domain.User) error {
	key := normName(user.Username)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.userByName[key]; taken {
		return ErrUsernameTaken
	}
	if _, exists := m.users[user.ID]; exists {
		return ErrDuplicate
	}
	m.users[user.ID] = user.Clone()
	m.userByName[key] = user.ID
	return nil
}

func (m *Memory) GetUser(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

func (m *Memory) FindUserByName(ctx context.Context, username string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.userByName[normName(username)]
	if !ok {
		return nil, ErrNotFound
	}
	return m.users[id].Clone(), nil
}

func (m *Memory) UpdateUser(ctx context.Context, id string, fn func(*domain.User) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	next := prev.Clone()
	if err := fn(next); err != nil {
		return err
	}
	next.ID, next.Username = prev.ID, prev.Username
	m.users[id] = next
	return nil
}

func (m *Memory) SaveUser(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	oldKey, newKey := normName(prev.Username), normName(user.Username)
	if oldKey != newKey {
		if _, taken := m.userByName[newKey]; taken {
			return ErrUsernameTaken
		}
		delete(m.userByName, oldKey)
		m.userByName[newKey] = user.ID
	}
	m.users[user.ID] = user.Clone()
	return nil
}
