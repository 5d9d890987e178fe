package appointments

import (
	"context"
	"time"

	"github.com/wolfman30/carepulse/internal/events"
	"github.com/wolfman30/carepulse/internal/observability/metrics"
	"github.com/wolfman30/carepulse/internal/validation"
)

// Observer is notified after workflow outcomes. Errors are logged by the
// workflow and never change the result returned to the caller.
type Observer interface {
	OnAppointmentCreated(ctx context.Context, appt *Appointment) error
	OnAppointmentUpdated(ctx context.Context, appt *Appointment, action validation.Action) error
	OnValidationFailed(ctx context.Context, form string, fields map[string]string) error
}

// EventObserver publishes lifecycle events.
type EventObserver struct {
	publisher events.Publisher
	now       func() time.Time
}

func NewEventObserver(publisher events.Publisher) *EventObserver {
	return &EventObserver{publisher: publisher, now: time.Now}
}

func (o *EventObserver) OnAppointmentCreated(ctx context.Context, appt *Appointment) error {
	return o.publisher.Publish(ctx, eventSubject(appt.ID), createdEvent(appt))
}

func (o *EventObserver) OnAppointmentUpdated(ctx context.Context, appt *Appointment, action validation.Action) error {
	return o.publisher.Publish(ctx, eventSubject(appt.ID), statusChangedEvent(appt, action))
}

func (o *EventObserver) OnValidationFailed(ctx context.Context, form string, fields map[string]string) error {
	return o.publisher.Publish(ctx, "form:"+form, events.ValidationFailedV1{
		Form:       form,
		Fields:     fields,
		OccurredAt: o.now().UTC(),
	})
}

// PatientNotifier sends patient-facing messages for lifecycle events.
type PatientNotifier interface {
	NotifyAppointmentRequested(ctx context.Context, evt events.AppointmentCreatedV1) error
	NotifyAppointmentStatusChanged(ctx context.Context, evt events.AppointmentStatusChangedV1) error
}

// NotifyObserver e-mails the patient on create and status changes.
type NotifyObserver struct {
	notifier PatientNotifier
}

func NewNotifyObserver(notifier PatientNotifier) *NotifyObserver {
	return &NotifyObserver{notifier: notifier}
}

func (o *NotifyObserver) OnAppointmentCreated(ctx context.Context, appt *Appointment) error {
	return o.notifier.NotifyAppointmentRequested(ctx, createdEvent(appt))
}

func (o *NotifyObserver) OnAppointmentUpdated(ctx context.Context, appt *Appointment, action validation.Action) error {
	return o.notifier.NotifyAppointmentStatusChanged(ctx, statusChangedEvent(appt, action))
}

func (o *NotifyObserver) OnValidationFailed(context.Context, string, map[string]string) error {
	return nil
}

// MetricsObserver counts rejected forms.
type MetricsObserver struct {
	metrics *metrics.WorkflowMetrics
}

func NewMetricsObserver(m *metrics.WorkflowMetrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) OnAppointmentCreated(context.Context, *Appointment) error { return nil }

func (o *MetricsObserver) OnAppointmentUpdated(context.Context, *Appointment, validation.Action) error {
	return nil
}

func (o *MetricsObserver) OnValidationFailed(_ context.Context, form string, _ map[string]string) error {
	o.metrics.ObserveValidationFailure(form)
	return nil
}

func eventSubject(id string) string { return "appointment:" + id }

func createdEvent(appt *Appointment) events.AppointmentCreatedV1 {
	return events.AppointmentCreatedV1{
		AppointmentID:    appt.ID,
		UserID:           appt.UserID,
		PatientID:        appt.PatientID,
		PrimaryPhysician: appt.PrimaryPhysician,
		Schedule:         appt.Schedule,
		Reason:           appt.Reason,
		Status:           string(appt.Status),
		CreatedAt:        appt.CreatedAt,
	}
}

func statusChangedEvent(appt *Appointment, action validation.Action) events.AppointmentStatusChangedV1 {
	evt := events.AppointmentStatusChangedV1{
		AppointmentID:    appt.ID,
		UserID:           appt.UserID,
		PatientID:        appt.PatientID,
		Action:           action.String(),
		Status:           string(appt.Status),
		PrimaryPhysician: appt.PrimaryPhysician,
		Schedule:         appt.Schedule,
		UpdatedAt:        appt.UpdatedAt,
	}
	if appt.CancellationReason != nil {
		evt.CancellationReason = *appt.CancellationReason
	}
	return evt
}

var (
	_ Observer = (*EventObserver)(nil)
	_ Observer = (*NotifyObserver)(nil)
	_ Observer = (*MetricsObserver)(nil)
)
