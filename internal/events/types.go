package events

import "time"

// AppointmentCreatedV1 is emitted when a patient requests an appointment.
type AppointmentCreatedV1 struct {
	AppointmentID    string    `json:"appointment_id"`
	UserID           string    `json:"user_id"`
	PatientID        string    `json:"patient_id"`
	PrimaryPhysician string    `json:"primary_physician"`
	Schedule         time.Time `json:"schedule"`
	Reason           string    `json:"reason"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

func (AppointmentCreatedV1) EventType() string { return "appointments.appointment.created.v1" }

// AppointmentStatusChangedV1 is emitted when an admin schedules or cancels.
type AppointmentStatusChangedV1 struct {
	AppointmentID      string    `json:"appointment_id"`
	UserID             string    `json:"user_id"`
	PatientID          string    `json:"patient_id"`
	Action             string    `json:"action"`
	Status             string    `json:"status"`
	PrimaryPhysician   string    `json:"primary_physician"`
	Schedule           time.Time `json:"schedule"`
	CancellationReason string    `json:"cancellation_reason,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (AppointmentStatusChangedV1) EventType() string {
	return "appointments.appointment.status_changed.v1"
}

// ValidationFailedV1 is emitted when a form is rejected before any remote call.
type ValidationFailedV1 struct {
	Form       string            `json:"form"`
	Fields     map[string]string `json:"fields"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func (ValidationFailedV1) EventType() string { return "appointments.validation.failed.v1" }
