package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a document, user or file does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when a create collides with an existing record
	// (duplicate id, or duplicate email at the identity service).
	ErrConflict = errors.New("store: conflict")

	// ErrUnavailable marks failures of the remote platform itself.
	ErrUnavailable = errors.New("store: remote unavailable")
)

// RemoteError wraps a transport or service failure of a remote call.
// errors.Is(err, ErrUnavailable) reports true for it.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Is makes every RemoteError match ErrUnavailable.
func (e *RemoteError) Is(target error) bool {
	return target == ErrUnavailable
}

func remote(op string, err error) error {
	return &RemoteError{Op: op, Err: err}
}
