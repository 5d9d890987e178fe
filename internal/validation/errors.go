package validation

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrInvalid matches every *Error via errors.Is.
	ErrInvalid = errors.New("validation failed")
	// ErrMissingReference marks a request that names no target record.
	ErrMissingReference = errors.New("validation: missing record reference")
	// ErrActionNotAllowed marks an action that cannot apply to the target record.
	ErrActionNotAllowed = errors.New("validation: action not allowed")
)

// Error carries per-field messages keyed by the JSON field name.
type Error struct {
	Fields map[string]string `json:"fields"`
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

func (e *Error) Is(target error) bool {
	return target == ErrInvalid
}

// FieldErrors extracts the field map from err, if it is a validation error.
func FieldErrors(err error) (map[string]string, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Fields, true
	}
	return nil, false
}
