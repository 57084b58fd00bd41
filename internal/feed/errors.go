package feed

import (
	"errors"
	"fmt"
)

// Error represents a pipeline error with a taxonomy code.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Error codes. Only ErrCodeInvalidConfig and ErrCodeEncoderUnavailable are fatal;
// everything else is retried, dropped or logged.
const (
	ErrCodeInvalidConfig      = "INVALID_CONFIG"
	ErrCodeInvalidState       = "INVALID_STATE"
	ErrCodeAlreadyRunning     = "ALREADY_RUNNING"
	ErrCodeEncoderUnavailable = "ENCODER_UNAVAILABLE"
	ErrCodeTransientRead      = "TRANSIENT_READ"
	ErrCodeEncode             = "ENCODE_FAILED"
	ErrCodePersistence        = "PERSISTENCE"
	ErrCodeSink               = "SINK"
	ErrCodeCleanup            = "CLEANUP"
)

// NewError creates a new pipeline error.
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsCode reports whether err carries a pipeline error with the given code.
func IsCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
