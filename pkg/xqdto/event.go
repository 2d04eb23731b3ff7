package xqdto

import (
	"encoding/json"
	"time"
)

// Push event names.
const (
	EventLobbyUpdated = "LobbyUpdated"
	EventSeatsUpdated = "SeatsUpdated"
	EventGameStarted  = "GameStarted"
	EventMoveApplied  = "MoveApplied"
	EventGameEnded    = "GameEnded"
)

// Event is one frame on the push channel.
type Event struct {
	Event   string          `json:"event"`
	RoomID  string          `json:"room_id"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
