package services

import "errors"

// FlowError carries the HTTP status and machine code a rejected step maps
// to. Controllers translate it into the uniform {error, message?} body; any
// other error becomes a generic 500.
type FlowError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter int // seconds, only set on rate-limit rejections
}

func (e *FlowError) Error() string {
	if e.Message != "" {
		return e.Code + ": " + e.Message
	}
	return e.Code
}

func NewFlowError(status int, code string, message string) *FlowError {
	return &FlowError{Status: status, Code: code, Message: message}
}

func AsFlowError(err error) (*FlowError, bool) {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
