package xqdto

// DomainError is the wire form of a rejected or failed request.
type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "xiangqi service error"
}

// ErrorResponse carries the game alongside the error when the rejection
// changed or explains it, as with a loss on time.
type ErrorResponse struct {
	Error DomainError `json:"error"`
	Game  *GameView   `json:"game,omitempty"`
}
