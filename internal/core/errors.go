package core

import "errors"

// Error codes for protocol-level errors.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeInvalidMessage = "invalid_message"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeUnauthorized   = "unauthorized"
)

var (
	ErrMissingIdentity = errors.New("missing identity")
	ErrUnauthorized    = errors.New("unauthorized")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
