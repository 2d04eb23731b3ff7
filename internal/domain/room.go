package domain

import (
	"time"

	"github.com/park285/xiangqi-server/internal/xiangqi"
)

// Visibility controls who may discover and enter a room.
type Visibility string

const (
	Public   Visibility = "public"
	Private  Visibility = "private"
	Unlisted Visibility = "unlisted"
)

const (
	DefaultSpectatorLimit   = 50
	DefaultBaseSeconds      = 300
	DefaultIncrementSeconds = 5
)

// RoomSettings is the match configuration chosen at creation.
type RoomSettings struct {
	Visibility       Visibility `json:"visibility"`
	AllowUndo        bool       `json:"allow_undo"`
	Rated            bool       `json:"rated"`
	SpectatorLimit   int        `json:"spectator_limit"`
	PasswordHash     string     `json:"password_hash,omitempty"`
	VsRobot          bool       `json:"vs_robot"`
	RobotSide        string     `json:"robot_side,omitempty"`
	BaseSeconds      int        `json:"base_seconds"`
	IncrementSeconds int        `json:"increment_seconds"`
}

// DefaultSettings mirrors the settings of a room created with no options.
func DefaultSettings() RoomSettings {
	return RoomSettings{
		Visibility:       Public,
		SpectatorLimit:   DefaultSpectatorLimit,
		BaseSeconds:      DefaultBaseSeconds,
		IncrementSeconds: DefaultIncrementSeconds,
	}
}

// RobotPlays reports whether the automated opponent owns side.
func (s RoomSettings) RobotPlays(side xiangqi.Side) bool {
	if !s.VsRobot {
		return false
	}
	rs, err := xiangqi.ParseSide(s.RobotSide)
	return err == nil && rs == side
}

// Room is a lobby and match container. Member sets are kept as ordered
// slices so persisted records are stable.
type Room struct {
	ID         string       `json:"id"`
	Number     int64        `json:"number"`
	Code       string       `json:"code"`
	Name       string       `json:"name"`
	OwnerID    string       `json:"owner_id"`
	Settings   RoomSettings `json:"settings"`
	RedID      string       `json:"red_id,omitempty"`
	BlackID    string       `json:"black_id,omitempty"`
	Spectators []string     `json:"spectators"`
	Waiting    []string     `json:"waiting"`
	Banned     []string     `json:"banned"`
	Playing    bool         `json:"playing"`
	GameID     string       `json:"game_id,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

func (r *Room) SeatsFilled() bool { return r.RedID != "" && r.BlackID != "" }

// Seat returns the occupant of side's seat.
func (r *Room) Seat(side xiangqi.Side) string {
	if side == xiangqi.Black {
		return r.BlackID
	}
	return r.RedID
}

func (r *Room) SetSeat(side xiangqi.Side, userID string) {
	if side == xiangqi.Black {
		r.BlackID = userID
		return
	}
	r.RedID = userID
}

// SeatOf reports which seat userID holds.
func (r *Room) SeatOf(userID string) (xiangqi.Side, bool) {
	switch {
	case userID == "":
		return xiangqi.Red, false
	case r.RedID == userID:
		return xiangqi.Red, true
	case r.BlackID == userID:
		return xiangqi.Black, true
	}
	return xiangqi.Red, false
}

func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Spectators = append([]string(nil), r.Spectators...)
	c.Waiting = append([]string(nil), r.Waiting...)
	c.Banned = append([]string(nil), r.Banned...)
	return &c
}

func Contains(set []string, id string) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}

// AddMember appends id unless present.
func AddMember(set []string, id string) []string {
	if Contains(set, id) {
		return set
	}
	return append(set, id)
}

func RemoveMember(set []string, id string) []string {
	out := make([]string, 0, len(set))
	for _, v := range set {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
