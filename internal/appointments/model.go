// Package appointments implements the appointment request, review and
// dashboard workflow on top of the document store.
package appointments

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wolfman30/carepulse/internal/validation"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
)

// ParseStatus rejects anything outside the three known states.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusScheduled, StatusCancelled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("appointments: unknown status %q", s)
	}
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// StatusFor derives the status an action moves an appointment into.
func StatusFor(action validation.Action) (Status, error) {
	switch action {
	case validation.ActionCreate:
		return StatusPending, nil
	case validation.ActionSchedule:
		return StatusScheduled, nil
	case validation.ActionCancel:
		return StatusCancelled, nil
	default:
		return "", fmt.Errorf("%w: %s", validation.ErrUnknownAction, action)
	}
}

// Appointment is a patient's request for a visit with a physician.
type Appointment struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	PatientID          string    `json:"patient_id"`
	PrimaryPhysician   string    `json:"primary_physician"`
	Schedule           time.Time `json:"schedule"`
	Reason             string    `json:"reason"`
	Note               *string   `json:"note"`
	Status             Status    `json:"status"`
	CancellationReason *string   `json:"cancellation_reason"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Dashboard is the admin listing. The three counts always sum to TotalCount.
type Dashboard struct {
	TotalCount     int           `json:"total_count"`
	ScheduledCount int           `json:"scheduled_count"`
	PendingCount   int           `json:"pending_count"`
	CancelledCount int           `json:"cancelled_count"`
	Documents      []Appointment `json:"documents"`
}

// CreateRequest is a patient's appointment submission.
type CreateRequest struct {
	UserID    string
	PatientID string
	Form      validation.AppointmentForm
}

// Created is the result of a successful Create.
type Created struct {
	Appointment *Appointment `json:"appointment"`
	// SuccessPath is where the client navigates after submitting.
	SuccessPath string `json:"success_path"`
}

// UpdateRequest is an admin's schedule or cancel submission.
type UpdateRequest struct {
	AppointmentID string
	Form          validation.AppointmentForm
}
