package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/xiangqi-server/internal/clock"
	"github.com/park285/xiangqi-server/internal/domain"
	"github.com/park285/xiangqi-server/internal/obslog"
	"github.com/park285/xiangqi-server/internal/store"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidUsername = errors.New("username must be 3-24 characters without spaces")
)

const maxDisplayName = 40

type Service struct {
	users  store.UserRepository
	clock  clock.Source
	logger *zap.Logger
}

func NewService(users store.UserRepository, src clock.Source, logger *zap.Logger) *Service {
	if src == nil {
		src = clock.System{}
	}
	if logger == nil {
		logger = obslog.L()
	}
	return &Service{users: users, clock: src, logger: logger}
}

// Register creates a player record. Usernames are unique ignoring case.
func (s *Service) Register(ctx context.Context, username, displayName string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < 3 || n > 24 || strings.ContainsAny(username, " \t\r\n") {
		return nil, ErrInvalidUsername
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = username
	}
	if utf8.RuneCountInString(displayName) > maxDisplayName {
		displayName = string([]rune(displayName)[:maxDisplayName])
	}

	u := &domain.User{
		ID:          uuid.NewString(),
		Username:    username,
		DisplayName: displayName,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.users.AddUser(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user_register", zap.String("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return u, err
}

func (s *Service) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	d := Build(u, s.clock.Now())
	return &d, nil
}
