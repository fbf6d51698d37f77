package rest

import (
	"errors"
	"fmt"
)

// Error kinds, matched with errors.Is.
var (
	ErrTransport = errors.New("transport error")
	ErrBackend   = errors.New("backend rejected request")
	ErrDecode    = errors.New("malformed response")
)

// Error describes a failed REST call. Message is the backend's own text
// when it sent one and is meant to be shown to the user as-is.
type Error struct {
	Op      string
	Status  int
	Message string
	Kind    error
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %v (status %d)", e.Op, e.Kind, e.Status)
	}
}

// Is matches the error kind.
func (e *Error) Is(target error) bool { return e.Kind == target }

func (e *Error) Unwrap() error { return e.Err }
