package session

import (
	"errors"

	"github.com/park285/xiangqi-server/internal/domain"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrGameNotFound  = errors.New("game not found")
	ErrInvalidSquare = errors.New("invalid square")
)

var (
	ErrNoActiveGame   = domain.Reject("no_active_game", "No game running.")
	ErrGameFinished   = domain.Reject("game_finished", "Game finished.")
	ErrIllegalMove    = domain.Reject("illegal_move", "Illegal move.")
	ErrFlaggedOnTime  = domain.Reject("flagged_on_time", "Flagged on time.")
	ErrNotSeated      = domain.Reject("not_seated", "resign only by seated player")
	ErrNotYourTurn    = domain.Reject("not_your_turn", "It is not your turn.")
	ErrSeatsNotFilled = domain.Reject("seats_not_filled", "Seats not filled.")
	ErrAlreadyPlaying = domain.Reject("already_playing", "Game already running.")
)
