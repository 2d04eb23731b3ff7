package xqdto

type RoomView struct {
	ID               string `json:"id"`
	Code             string `json:"code"`
	Name             string `json:"name"`
	OwnerID          string `json:"owner_id"`
	Visibility       string `json:"visibility"`
	HasPassword      bool   `json:"has_password"`
	SpectatorLimit   int    `json:"spectator_limit"`
	BaseSeconds      int    `json:"base_seconds"`
	IncrementSeconds int    `json:"increment_seconds"`
	AllowUndo        bool   `json:"allow_undo"`
	Rated            bool   `json:"rated"`
	VsRobot          bool   `json:"vs_robot"`
	RobotSide        string `json:"robot_side,omitempty"`
	RedID            string `json:"red_id,omitempty"`
	BlackID          string `json:"black_id,omitempty"`
	Playing          bool   `json:"playing"`
	GameID           string `json:"game_id,omitempty"`
}

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
