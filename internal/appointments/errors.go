package appointments

import (
	"fmt"

	"github.com/wolfman30/carepulse/internal/store"
	"github.com/wolfman30/carepulse/internal/validation"
)

var (
	// ErrPatientRequired is returned when a create request names no patient.
	ErrPatientRequired = fmt.Errorf("appointments: patient reference required: %w", validation.ErrMissingReference)
	// ErrPatientNotFound is returned when the referenced patient does not
	// exist. It matches store.ErrNotFound.
	ErrPatientNotFound = fmt.Errorf("appointments: patient not found: %w", store.ErrNotFound)
	// ErrAppointmentRequired is returned when an update names no appointment.
	ErrAppointmentRequired = fmt.Errorf("appointments: appointment id required: %w", validation.ErrMissingReference)
	// ErrReopenNotAllowed is returned when an update would move an
	// appointment back to pending.
	ErrReopenNotAllowed = fmt.Errorf("appointments: update cannot return an appointment to pending: %w", validation.ErrActionNotAllowed)
)
