package checkpoint

import (
	"errors"
	"fmt"
)

// Error codes returned by checkpoint stores.
const (
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeCorrupt     = "CORRUPT"
	ErrCodePersistence = "PERSISTENCE"
	ErrCodeLocked      = "LOCKED"
)

// Error represents a checkpoint store error.
type Error struct {
	Code    string
	Message string
	Path    string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("checkpoint %s (%s): %s: %v", e.Code, e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("checkpoint %s (%s): %s", e.Code, e.Path, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(code, path, message string, cause error) *Error {
	return &Error{Code: code, Path: path, Message: message, Cause: cause}
}

// IsCode reports whether err is a checkpoint error with the given code.
func IsCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsNotFound reports whether no checkpoint has been written yet.
func IsNotFound(err error) bool {
	return IsCode(err, ErrCodeNotFound)
}
