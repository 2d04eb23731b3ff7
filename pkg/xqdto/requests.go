package xqdto

type GuestRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

type UserView struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

type GuestResponse struct {
	User  UserView `json:"user"`
	Token string   `json:"token"`
}

type CreateRoomRequest struct {
	Name             string `json:"name"`
	Visibility       string `json:"visibility"`
	Password         string `json:"password"`
	SpectatorLimit   int    `json:"spectator_limit"`
	BaseSeconds      int    `json:"base_seconds"`
	// IncrementSeconds may be an explicit zero, so absence is nil.
	IncrementSeconds *int   `json:"increment_seconds,omitempty"`
	AllowUndo        bool   `json:"allow_undo"`
	Rated            bool   `json:"rated"`
	VsRobot          bool   `json:"vs_robot"`
	RobotSide        string `json:"robot_side"`
}

type JoinRequest struct {
	Role     string `json:"role"`
	Password string `json:"password"`
}

type WaitRequest struct {
	Password string `json:"password"`
}

type SeatRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type UnseatRequest struct {
	Role string `json:"role"`
}

type BanRequest struct {
	UserID string `json:"user_id"`
}

// MoveRequest names the move either by board indices or in coordinate
// notation such as "e3e4". Notation wins when both are given.
type MoveRequest struct {
	From *int   `json:"from,omitempty"`
	To   *int   `json:"to,omitempty"`
	Move string `json:"move,omitempty"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}
