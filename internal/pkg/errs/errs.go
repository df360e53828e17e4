package errs

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Services wrap these with a human-readable message; handlers
// pick the HTTP status with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation failed")
	ErrUnavailable   = errors.New("unavailable")
	ErrDependency    = errors.New("dependency failed")
)

// Error carries a user-facing message on top of a sentinel kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func NotFound(msg string) error      { return &Error{Kind: ErrNotFound, Message: msg} }
func AlreadyExists(msg string) error { return &Error{Kind: ErrAlreadyExists, Message: msg} }
func Validation(msg string) error    { return &Error{Kind: ErrValidation, Message: msg} }
func Unavailable(msg string) error   { return &Error{Kind: ErrUnavailable, Message: msg} }

// Dependency wraps a load-bearing collaborator failure, keeping the cause in the chain.
func Dependency(msg string, cause error) error {
	if cause == nil {
		return &Error{Kind: ErrDependency, Message: msg}
	}
	return &Error{Kind: ErrDependency, Message: fmt.Sprintf("%s: %v", msg, cause)}
}
