package domain

import "errors"

// Rejection is an expected precondition failure. It is reported to the
// caller as a structured outcome and never retried.
type Rejection struct {
	Code    string
	Message string
}

func (r Rejection) Error() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Code
}

func Reject(code, message string) error { return Rejection{Code: code, Message: message} }

// AsRejection unwraps err to a Rejection if it is one.
func AsRejection(err error) (Rejection, bool) {
	var r Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return Rejection{}, false
}
