package patients

import (
	"fmt"

	"github.com/wolfman30/carepulse/internal/store"
)

var (
	// ErrUserNotFound is returned when a registration names an unknown user.
	// It matches store.ErrNotFound.
	ErrUserNotFound = fmt.Errorf("patients: user not found: %w", store.ErrNotFound)
	// ErrAlreadyRegistered is returned when the user already owns a patient
	// profile. It matches store.ErrConflict.
	ErrAlreadyRegistered = fmt.Errorf("patients: user already has a patient profile: %w", store.ErrConflict)
)
