package room

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/park285/xiangqi-server/internal/clock"
	"github.com/park285/xiangqi-server/internal/domain"
	"github.com/park285/xiangqi-server/internal/obslog"
	"github.com/park285/xiangqi-server/internal/roomlock"
	"github.com/park285/xiangqi-server/internal/store"
	"github.com/park285/xiangqi-server/internal/xiangqi"
)

// Role is how a user asks to enter a room.
type Role string

const (
	RoleRed       Role = "red"
	RoleBlack     Role = "black"
	RoleSpectator Role = "spectator"
)

// ParseRole maps free text to a role; anything that is not a seat is a
// spectator.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red":
		return RoleRed
	case "black":
		return RoleBlack
	}
	return RoleSpectator
}

func (r Role) side() (xiangqi.Side, bool) {
	switch r {
	case RoleRed:
		return xiangqi.Red, true
	case RoleBlack:
		return xiangqi.Black, true
	}
	return xiangqi.Red, false
}

type CreateRequest struct {
	OwnerID  string
	Name     string
	Settings domain.RoomSettings
	// Password is hashed before it is stored; only private rooms keep one.
	Password string
}

// LobbyView is the seat and waiting-list summary of a room.
type LobbyView struct {
	RoomID     string   `json:"room_id"`
	Code       string   `json:"code"`
	Name       string   `json:"name"`
	RedID      string   `json:"red_id,omitempty"`
	BlackID    string   `json:"black_id,omitempty"`
	Waiting    []string `json:"waiting"`
	Spectators []string `json:"spectators"`
	Playing    bool     `json:"playing"`
	IsFull     bool     `json:"is_full"`
	CanStart   bool     `json:"can_start"`
}

// Service owns room membership. Every mutation holds the room's lock and
// persists the whole record before returning.
type Service struct {
	rooms    store.RoomRepository
	locks    *roomlock.Locker
	clock    clock.Source
	logger   *zap.Logger
	defaults domain.RoomSettings
	hashCost int
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDefaults sets the values used for zero fields at creation.
func WithDefaults(d domain.RoomSettings) Option { return func(s *Service) { s.defaults = d } }

func WithHashCost(cost int) Option { return func(s *Service) { s.hashCost = cost } }

func NewService(rooms store.RoomRepository, locks *roomlock.Locker, src clock.Source, opts ...Option) (*Service, error) {
	if rooms == nil {
		return nil, errors.New("room repository is required")
	}
	if locks == nil {
		locks = roomlock.New()
	}
	if src == nil {
		src = clock.System{}
	}
	s := &Service{
		rooms:    rooms,
		locks:    locks,
		clock:    src,
		logger:   obslog.L(),
		defaults: domain.DefaultSettings(),
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Defaults returns the settings applied to zero fields at creation.
func (s *Service) Defaults() domain.RoomSettings { return s.defaults }

func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Room, error) {
	if strings.TrimSpace(req.OwnerID) == "" {
		return nil, ErrInvalidArgs
	}
	settings, err := s.normalize(req.Settings)
	if err != nil {
		return nil, err
	}
	if settings.Visibility == domain.Private {
		if strings.TrimSpace(req.Password) == "" {
			return nil, ErrPasswordRequired
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
		if err != nil {
			return nil, fmt.Errorf("hash room password: %w", err)
		}
		settings.PasswordHash = string(hash)
	} else {
		settings.PasswordHash = ""
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Room"
	}
	r, err := s.rooms.AddRoom(ctx, &domain.Room{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   req.OwnerID,
		Settings:  settings,
		CreatedAt: s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("room_create",
		zap.String("room_id", r.ID),
		zap.String("code", r.Code),
		zap.String("owner_id", r.OwnerID),
		zap.String("visibility", string(settings.Visibility)),
		zap.Bool("vs_robot", settings.VsRobot),
	)
	return r, nil
}

func (s *Service) normalize(in domain.RoomSettings) (domain.RoomSettings, error) {
	out := in
	switch out.Visibility {
	case "":
		out.Visibility = s.defaults.Visibility
	case domain.Public, domain.Private, domain.Unlisted:
	default:
		return out, fmt.Errorf("%w: visibility %q", ErrInvalidSettings, in.Visibility)
	}
	if out.SpectatorLimit <= 0 {
		out.SpectatorLimit = s.defaults.SpectatorLimit
	}
	if out.BaseSeconds <= 0 {
		out.BaseSeconds = s.defaults.BaseSeconds
	}
	if out.IncrementSeconds < 0 {
		return out, fmt.Errorf("%w: negative increment", ErrInvalidSettings)
	}
	if out.VsRobot {
		side, err := xiangqi.ParseSide(out.RobotSide)
		if err != nil {
			return out, fmt.Errorf("%w: robot side %q", ErrInvalidSettings, in.RobotSide)
		}
		out.RobotSide = side.String()
	} else {
		out.RobotSide = ""
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, roomID string) (*domain.Room, error) {
	r, err := s.rooms.GetRoom(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	return r, err
}

func (s *Service) GetByCode(ctx context.Context, code string) (*domain.Room, error) {
	r, err := s.rooms.GetRoomByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	return r, err
}

// Resolve accepts either a room id or a room code.
func (s *Service) Resolve(ctx context.Context, idOrCode string) (*domain.Room, error) {
	idOrCode = strings.TrimSpace(idOrCode)
	if _, err := uuid.Parse(idOrCode); err == nil {
		return s.Get(ctx, idOrCode)
	}
	return s.GetByCode(ctx, idOrCode)
}

// mutate loads the room under its lock, applies fn and saves the result when
// fn succeeds.
func (s *Service) mutate(ctx context.Context, roomID string, fn func(r *domain.Room) error) (*domain.Room, error) {
	unlock := s.locks.Lock(roomID)
	defer unlock()

	r, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := fn(r); err != nil {
		return r, err
	}
	if err := s.rooms.SaveRoom(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) checkEntry(r *domain.Room, userID, password string) error {
	if domain.Contains(r.Banned, userID) {
		return ErrBanned
	}
	if r.Settings.Visibility == domain.Private {
		if bcrypt.CompareHashAndPassword([]byte(r.Settings.PasswordHash), []byte(password)) != nil {
			return ErrWrongPassword
		}
	}
	if r.SeatsFilled() {
		return ErrRoomFull
	}
	return nil
}

// Join takes a seat or, for any other role, a spectator place.
func (s *Service) Join(ctx context.Context, roomID, userID string, role Role, password string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidArgs
	}
	_, err := s.mutate(ctx, roomID, func(r *domain.Room) error {
		if err := s.checkEntry(r, userID, password); err != nil {
			return err
		}
		if side, ok := role.side(); ok {
			if r.Seat(side) != "" {
				return ErrSeatTaken
			}
			if _, seated := r.SeatOf(userID); seated {
				return ErrAlreadySeated
			}
			r.SetSeat(side, userID)
			return nil
		}
		if !domain.Contains(r.Spectators, userID) && len(r.Spectators) >= r.Settings.SpectatorLimit {
			return ErrSpectatorsFull
		}
		r.Spectators = domain.AddMember(r.Spectators, userID)
		return nil
	})
	s.logResult("room_join", roomID, userID, err, zap.String("role", string(role)))
	return err
}

// JoinWaiting queues the user for a seat. Waiting users also watch.
// 두 좌석이 모두 찬 방에는 대기 불가.
func (s *Service) JoinWaiting(ctx context.Context, roomID, userID, password string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidArgs
	}
	_, err := s.mutate(ctx, roomID, func(r *domain.Room) error {
		if err := s.checkEntry(r, userID, password); err != nil {
			return err
		}
		if _, seated := r.SeatOf(userID); seated {
			return ErrAlreadySeated
		}
		r.Waiting = domain.AddMember(r.Waiting, userID)
		r.Spectators = domain.AddMember(r.Spectators, userID)
		return nil
	})
	s.logResult("room_wait", roomID, userID, err)
	return err
}

// AssignSeat lets the owner seat a waiting or watching user.
func (s *Service) AssignSeat(ctx context.Context, roomID, ownerID, userID string, role Role) error {
	_, err := s.mutate(ctx, roomID, func(r *domain.Room) error {
		if r.OwnerID != ownerID {
			return ErrNotOwner
		}
		if !domain.Contains(r.Waiting, userID) && !domain.Contains(r.Spectators, userID) {
			return ErrNotWaiting
		}
		side, ok := role.side()
		if !ok {
			return ErrBadRole
		}
		if r.Seat(side) != "" {
			return ErrSeatTaken
		}
		if _, seated := r.SeatOf(userID); seated {
			return ErrAlreadySeated
		}
		r.SetSeat(side, userID)
		r.Waiting = domain.RemoveMember(r.Waiting, userID)
		return nil
	})
	s.logResult("room_seat", roomID, userID, err, zap.String("role", string(role)), zap.String("owner_id", ownerID))
	return err
}

// UnassignSeat returns the occupant of a seat to the waiting list.
func (s *Service) UnassignSeat(ctx context.Context, roomID, ownerID string, role Role) error {
	var occupant string
	_, err := s.mutate(ctx, roomID, func(r *domain.Room) error {
		if r.OwnerID != ownerID {
			return ErrNotOwner
		}
		side, ok := role.side()
		if !ok {
			return ErrBadRole
		}
		occupant = r.Seat(side)
		if occupant == "" {
			return ErrSeatEmpty
		}
		r.Spectators = domain.AddMember(r.Spectators, occupant)
		r.Waiting = domain.AddMember(r.Waiting, occupant)
		r.SetSeat(side, "")
		return nil
	})
	s.logResult("room_unseat", roomID, occupant, err, zap.String("role", string(role)), zap.String("owner_id", ownerID))
	return err
}

// Leave clears the user's seat, or else their spectator and waiting
// membership. Leaving a room one is not in is a no-op.
func (s *Service) Leave(ctx context.Context, roomID, userID string) error {
	_, err := s.mutate(ctx, roomID, func(r *domain.Room) error {
		if side, seated := r.SeatOf(userID); seated {
			r.SetSeat(side, "")
			return nil
		}
		r.Spectators = domain.RemoveMember(r.Spectators, userID)
		r.Waiting = domain.RemoveMember(r.Waiting, userID)
		return nil
	})
	s.logResult("room_leave", roomID, userID, err)
	return err
}

// Ban removes the user from the room and keeps them out.
// 대국 중인 좌석 유저는 차단 불가(game_in_progress).
func (s *Service) Ban(ctx context.Context, roomID, ownerID, userID string) error {
	_, err := s.mutate(ctx, roomID, func(r *domain.Room) error {
		if r.OwnerID != ownerID {
			return ErrNotOwner
		}
		if userID == "" || userID == r.OwnerID {
			return ErrInvalidArgs
		}
		if side, seated := r.SeatOf(userID); seated {
			if r.Playing {
				return ErrGameInProgress
			}
			r.SetSeat(side, "")
		}
		r.Spectators = domain.RemoveMember(r.Spectators, userID)
		r.Waiting = domain.RemoveMember(r.Waiting, userID)
		r.Banned = domain.AddMember(r.Banned, userID)
		return nil
	})
	s.logResult("room_ban", roomID, userID, err, zap.String("owner_id", ownerID))
	return err
}

func (s *Service) Lobby(ctx context.Context, roomID string) (*LobbyView, error) {
	r, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &LobbyView{
		RoomID:     r.ID,
		Code:       r.Code,
		Name:       r.Name,
		RedID:      r.RedID,
		BlackID:    r.BlackID,
		Waiting:    append([]string{}, r.Waiting...),
		Spectators: append([]string{}, r.Spectators...),
		Playing:    r.Playing,
		IsFull:     r.SeatsFilled(),
		CanStart:   r.SeatsFilled() && !r.Playing,
	}, nil
}

func (s *Service) logResult(event, roomID, userID string, err error, fields ...zap.Field) {
	fields = append([]zap.Field{zap.String("room_id", roomID), zap.String("user_id", userID)}, fields...)
	if err == nil {
		s.logger.Info(event, fields...)
		return
	}
	if rej, ok := domain.AsRejection(err); ok {
		s.logger.Info(event+"_rejected", append(fields, zap.String("code", rej.Code))...)
		return
	}
	s.logger.Warn(event+"_error", append(fields, zap.Error(err))...)
}
