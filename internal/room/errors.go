package room

import (
	"errors"

	"github.com/park285/xiangqi-server/internal/domain"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrInvalidSettings = errors.New("invalid room settings")
	ErrInvalidArgs     = errors.New("invalid arguments")
)

var (
	ErrPasswordRequired = domain.Reject("password_required", "Private room requires a password.")
	ErrBanned           = domain.Reject("banned", "You are banned from this room.")
	ErrWrongPassword    = domain.Reject("wrong_password", "Invalid password for private room.")
	ErrRoomFull         = domain.Reject("room_full", "Room is full.")
	ErrSeatTaken        = domain.Reject("seat_taken", "Seat is already taken.")
	ErrSpectatorsFull   = domain.Reject("spectators_full", "Spectator limit reached.")
	ErrNotOwner         = domain.Reject("not_owner", "Only the room owner can do that.")
	ErrNotWaiting       = domain.Reject("not_waiting", "User is not waiting or watching in this room.")
	ErrSeatEmpty        = domain.Reject("seat_empty", "Seat is empty.")
	ErrBadRole          = domain.Reject("bad_role", "Role must be red or black.")
	ErrAlreadySeated    = domain.Reject("already_seated", "User already holds a seat.")
	ErrGameInProgress   = domain.Reject("game_in_progress", "A game is in progress.")
)
