package appointments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/carepulse/internal/observability/metrics"
	"github.com/wolfman30/carepulse/internal/store"
	"github.com/wolfman30/carepulse/internal/validation"
	"github.com/wolfman30/carepulse/pkg/logging"
)

var tracer = otel.Tracer("carepulse.internal.appointments")

// DashboardPath is the admin view refreshed after every create and update.
const DashboardPath = "/admin"

// Invalidator drops cached renderings of a view path.
type Invalidator interface {
	Invalidate(ctx context.Context, path string) error
}

// Auditor records appointment changes for compliance.
type Auditor interface {
	LogAppointmentCreated(ctx context.Context, appointmentID, patientID, userID string) error
	LogAppointmentStatusChanged(ctx context.Context, appointmentID, action, status string, fields []string) error
}

// Config names the collections the workflow reads and writes.
type Config struct {
	PatientCollection     string
	AppointmentCollection string
}

// Service runs the appointment workflow. It holds no per-request state.
type Service struct {
	docs        store.DocumentStore
	cfg         Config
	observers   []Observer
	invalidator Invalidator
	audit       Auditor
	metrics     *metrics.WorkflowMetrics
	logger      *logging.Logger
}

// Option configures optional collaborators.
type Option func(*Service)

func WithObservers(observers ...Observer) Option {
	return func(s *Service) {
		for _, o := range observers {
			if o != nil {
				s.observers = append(s.observers, o)
			}
		}
	}
}

func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.audit = a }
}

func WithMetrics(m *metrics.WorkflowMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService wires the workflow to a document store.
func NewService(docs store.DocumentStore, cfg Config, logger *logging.Logger, opts ...Option) *Service {
	if docs == nil {
		panic("appointments: document store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.PatientCollection == "" {
		cfg.PatientCollection = "patients"
	}
	if cfg.AppointmentCollection == "" {
		cfg.AppointmentCollection = "appointments"
	}
	s := &Service{docs: docs, cfg: cfg, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create validates a patient's request and stores it as pending.
func (s *Service) Create(ctx context.Context, req CreateRequest) (created *Created, err error) {
	ctx, span := tracer.Start(ctx, "appointments.create")
	defer func() { s.finish(span, "appointment.create", err) }()
	span.SetAttributes(attribute.String("appointment.patient_id", req.PatientID))

	input, err := validation.ValidateAppointment(validation.ActionCreate, req.Form)
	if err != nil {
		s.rejected(ctx, "appointment.create", err)
		return nil, err
	}

	patientID := strings.TrimSpace(req.PatientID)
	if patientID == "" {
		return nil, ErrPatientRequired
	}
	start := time.Now()
	patientDoc, err := s.docs.GetDocument(ctx, s.cfg.PatientCollection, patientID)
	s.metrics.ObserveRemoteLatency("documents.get", time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("appointments: create: %w", err)
	}
	owner, _ := patientDoc.Fields["user_id"].(string)
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = owner
	}
	if owner != "" && userID != owner {
		return nil, ErrPatientNotFound
	}

	fields, err := store.Encode(Appointment{
		UserID:             userID,
		PatientID:          patientID,
		PrimaryPhysician:   input.PrimaryPhysician,
		Schedule:           input.Schedule,
		Reason:             input.Reason,
		Note:               input.Note,
		Status:             StatusPending,
		CancellationReason: input.CancellationReason,
	})
	if err != nil {
		return nil, fmt.Errorf("appointments: create: %w", err)
	}

	start = time.Now()
	doc, err := s.docs.CreateDocument(ctx, s.cfg.AppointmentCollection, store.NewID(), fields)
	s.metrics.ObserveRemoteLatency("documents.create", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("appointments: create: %w", err)
	}
	var appt Appointment
	if err := store.Decode(doc, &appt); err != nil {
		return nil, fmt.Errorf("appointments: create: %w", err)
	}
	span.SetAttributes(attribute.String("appointment.id", appt.ID))

	if s.audit != nil {
		if err := s.audit.LogAppointmentCreated(ctx, appt.ID, appt.PatientID, appt.UserID); err != nil {
			s.logger.Error("appointments: audit create failed", "error", err, "appointment_id", appt.ID)
		}
	}
	for _, o := range s.observers {
		if err := o.OnAppointmentCreated(ctx, &appt); err != nil {
			s.logger.Warn("appointments: observer failed", "error", err, "event", "created", "appointment_id", appt.ID)
		}
	}

	s.invalidateDashboard(ctx)
	s.logger.Info("appointment created", "appointment_id", appt.ID, "patient_id", appt.PatientID)
	return &Created{Appointment: &appt, SuccessPath: SuccessPath(appt.UserID, appt.ID)}, nil
}

// Update applies a schedule or cancel decision and returns the stored record.
// ActionCreate is rejected: an appointment never returns to pending.
func (s *Service) Update(ctx context.Context, req UpdateRequest, action validation.Action) (updated *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointments.update")
	defer func() { s.finish(span, "appointment.update", err) }()
	span.SetAttributes(
		attribute.String("appointment.id", req.AppointmentID),
		attribute.String("appointment.action", action.String()),
	)

	if action == validation.ActionCreate {
		return nil, ErrReopenNotAllowed
	}
	input, err := validation.ValidateAppointment(action, req.Form)
	if err != nil {
		if _, ok := validation.FieldErrors(err); ok {
			s.rejected(ctx, "appointment."+action.String(), err)
		}
		return nil, err
	}
	status, err := StatusFor(action)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSpace(req.AppointmentID)
	if id == "" {
		return nil, ErrAppointmentRequired
	}

	patch := map[string]any{
		"primary_physician": input.PrimaryPhysician,
		"schedule":          input.Schedule.UTC().Format(time.RFC3339Nano),
		"status":            string(status),
	}
	if input.Reason != "" {
		patch["reason"] = input.Reason
	}
	if input.Note != nil {
		patch["note"] = *input.Note
	}
	switch {
	case status == StatusScheduled:
		// A cancellation reason only describes cancelled appointments.
		patch["cancellation_reason"] = nil
	case input.CancellationReason != nil:
		patch["cancellation_reason"] = *input.CancellationReason
	}

	start := time.Now()
	doc, err := s.docs.UpdateDocument(ctx, s.cfg.AppointmentCollection, id, patch)
	s.metrics.ObserveRemoteLatency("documents.update", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("appointments: update %s: %w", id, err)
	}
	var appt Appointment
	if err := store.Decode(doc, &appt); err != nil {
		return nil, fmt.Errorf("appointments: update %s: %w", id, err)
	}

	s.invalidateDashboard(ctx)
	if s.audit != nil {
		if err := s.audit.LogAppointmentStatusChanged(ctx, appt.ID, action.String(), string(appt.Status), sortedKeys(patch)); err != nil {
			s.logger.Error("appointments: audit update failed", "error", err, "appointment_id", appt.ID)
		}
	}
	for _, o := range s.observers {
		if err := o.OnAppointmentUpdated(ctx, &appt, action); err != nil {
			s.logger.Warn("appointments: observer failed", "error", err, "event", "updated", "appointment_id", appt.ID)
		}
	}

	s.logger.Info("appointment updated", "appointment_id", appt.ID, "action", action.String(), "status", appt.Status)
	return &appt, nil
}

// Get returns one appointment.
func (s *Service) Get(ctx context.Context, id string) (appt *Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointments.get")
	defer func() { s.finish(span, "appointment.get", err) }()
	span.SetAttributes(attribute.String("appointment.id", id))

	start := time.Now()
	doc, err := s.docs.GetDocument(ctx, s.cfg.AppointmentCollection, id)
	s.metrics.ObserveRemoteLatency("documents.get", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("appointments: get %s: %w", id, err)
	}
	var out Appointment
	if err := store.Decode(doc, &out); err != nil {
		return nil, fmt.Errorf("appointments: get %s: %w", id, err)
	}
	return &out, nil
}

// ListRecent returns every appointment, newest first, with status counts
// taken from the same listing.
func (s *Service) ListRecent(ctx context.Context) (dash *Dashboard, err error) {
	ctx, span := tracer.Start(ctx, "appointments.list_recent")
	defer func() { s.finish(span, "appointment.list_recent", err) }()

	start := time.Now()
	list, err := s.docs.ListDocuments(ctx, s.cfg.AppointmentCollection, store.Query{Order: store.OrderCreatedDesc})
	s.metrics.ObserveRemoteLatency("documents.list", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("appointments: list recent: %w", err)
	}

	out := &Dashboard{Documents: make([]Appointment, 0, len(list.Documents))}
	for i := range list.Documents {
		var appt Appointment
		if err := store.Decode(&list.Documents[i], &appt); err != nil {
			return nil, fmt.Errorf("appointments: list recent: %w", err)
		}
		switch appt.Status {
		case StatusScheduled:
			out.ScheduledCount++
		case StatusPending:
			out.PendingCount++
		case StatusCancelled:
			out.CancelledCount++
		default:
			return nil, fmt.Errorf("appointments: list recent: document %s has status %q", appt.ID, appt.Status)
		}
		out.Documents = append(out.Documents, appt)
	}
	out.TotalCount = len(out.Documents)

	span.SetAttributes(attribute.Int("appointments.total", out.TotalCount))
	s.metrics.SetDashboardCounts(out.ScheduledCount, out.PendingCount, out.CancelledCount)
	return out, nil
}

// SuccessPath is the client route shown after an appointment is requested.
func SuccessPath(userID, appointmentID string) string {
	return fmt.Sprintf("/patients/%s/new-appointment/success?appointment_id=%s",
		url.PathEscape(userID), url.QueryEscape(appointmentID))
}

func (s *Service) invalidateDashboard(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, DashboardPath); err != nil {
		s.logger.Warn("appointments: invalidate dashboard failed", "error", err, "path", DashboardPath)
	}
}

func (s *Service) rejected(ctx context.Context, form string, err error) {
	fields, _ := validation.FieldErrors(err)
	for _, o := range s.observers {
		if oerr := o.OnValidationFailed(ctx, form, fields); oerr != nil {
			s.logger.Warn("appointments: observer failed", "error", oerr, "event", "validation_failed", "form", form)
		}
	}
}

func (s *Service) finish(span trace.Span, op string, err error) {
	defer span.End()
	outcome := Outcome(err)
	s.metrics.ObserveOperation(op, outcome)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
}

// Outcome buckets an operation error for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, validation.ErrInvalid), errors.Is(err, validation.ErrUnknownAction),
		errors.Is(err, validation.ErrMissingReference), errors.Is(err, validation.ErrActionNotAllowed):
		return "invalid"
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ErrPatientNotFound):
		return "not_found"
	case errors.Is(err, store.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
