// Package compliance records immutable audit events for patient data access.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/wolfman30/carepulse/internal/actor"
)

// AuditEventType represents the type of compliance event.
type AuditEventType string

const (
	// EventPatientRegistered is logged when a patient record is written.
	EventPatientRegistered AuditEventType = "patient.registered"
	// EventDocumentUploaded is logged when an identification document is stored.
	EventDocumentUploaded AuditEventType = "patient.document_uploaded"
	// EventAppointmentCreated is logged when a patient requests an appointment.
	EventAppointmentCreated AuditEventType = "appointment.created"
	// EventAppointmentStatusChanged is logged when an admin schedules or cancels.
	EventAppointmentStatusChanged AuditEventType = "appointment.status_changed"
)

// AuditEvent represents an immutable compliance audit record.
type AuditEvent struct {
	ID            string          `json:"id"`
	EventType     AuditEventType  `json:"event_type"`
	Actor         string          `json:"actor"`
	SubjectType   string          `json:"subject_type"`
	SubjectID     string          `json:"subject_id"`
	ChangedFields []string        `json:"changed_fields,omitempty"`
	Details       json.RawMessage `json:"details,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AuditDetails contains event-specific details.
type AuditDetails struct {
	UserID    string `json:"user_id,omitempty"`
	PatientID string `json:"patient_id,omitempty"`

	// For document uploads
	Bucket string `json:"bucket,omitempty"`
	FileID string `json:"file_id,omitempty"`

	// For status changes
	Action string `json:"action,omitempty"`
	Status string `json:"status,omitempty"`
}

// AuditService handles compliance audit logging.
type AuditService struct {
	db  *sql.DB
	now func() time.Time
}

// NewAuditService creates a new audit service.
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// LogEvent records a compliance audit event. The actor defaults to the
// subject attached to ctx.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if s == nil || s.db == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	if event.Actor == "" {
		event.Actor = actor.Subject(ctx)
	}
	if event.ChangedFields == nil {
		event.ChangedFields = []string{}
	}

	query := `
		INSERT INTO audit_events (
			id, event_type, actor, subject_type, subject_id,
			changed_fields, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.Actor,
		event.SubjectType,
		event.SubjectID,
		pq.Array(event.ChangedFields),
		nullJSON(event.Details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}

	return nil
}

// LogPatientRegistered logs a new patient record. Field values are never
// stored, only their names.
func (s *AuditService) LogPatientRegistered(ctx context.Context, patientID, userID string, fields []string) error {
	detailsJSON, _ := json.Marshal(AuditDetails{UserID: userID})

	return s.LogEvent(ctx, AuditEvent{
		EventType:     EventPatientRegistered,
		SubjectType:   "patient",
		SubjectID:     patientID,
		ChangedFields: fields,
		Details:       detailsJSON,
	})
}

// LogDocumentUploaded logs an identification document upload.
func (s *AuditService) LogDocumentUploaded(ctx context.Context, patientID, bucket, fileID string) error {
	detailsJSON, _ := json.Marshal(AuditDetails{Bucket: bucket, FileID: fileID})

	return s.LogEvent(ctx, AuditEvent{
		EventType:   EventDocumentUploaded,
		SubjectType: "patient",
		SubjectID:   patientID,
		Details:     detailsJSON,
	})
}

// LogAppointmentCreated logs a new appointment request.
func (s *AuditService) LogAppointmentCreated(ctx context.Context, appointmentID, patientID, userID string) error {
	detailsJSON, _ := json.Marshal(AuditDetails{PatientID: patientID, UserID: userID, Status: "pending"})

	return s.LogEvent(ctx, AuditEvent{
		EventType:   EventAppointmentCreated,
		SubjectType: "appointment",
		SubjectID:   appointmentID,
		Details:     detailsJSON,
	})
}

// LogAppointmentStatusChanged logs a schedule or cancel update.
func (s *AuditService) LogAppointmentStatusChanged(ctx context.Context, appointmentID, action, status string, fields []string) error {
	detailsJSON, _ := json.Marshal(AuditDetails{Action: action, Status: status})

	return s.LogEvent(ctx, AuditEvent{
		EventType:     EventAppointmentStatusChanged,
		SubjectType:   "appointment",
		SubjectID:     appointmentID,
		ChangedFields: fields,
		Details:       detailsJSON,
	})
}

// QueryEvents retrieves audit events with filters.
func (s *AuditService) QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT id, event_type, actor, subject_type, subject_id,
			   changed_fields, details, created_at
		FROM audit_events
		WHERE 1 = 1
	`
	var args []interface{}
	argIdx := 1

	if filter.SubjectID != "" {
		query += fmt.Sprintf(" AND subject_id = $%d", argIdx)
		args = append(args, filter.SubjectID)
		argIdx++
	}
	if filter.Actor != "" {
		query += fmt.Sprintf(" AND actor = $%d", argIdx)
		args = append(args, filter.Actor)
		argIdx++
	}
	if filter.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, filter.EventType)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var details []byte
		err := rows.Scan(
			&e.ID, &e.EventType, &e.Actor, &e.SubjectType, &e.SubjectID,
			pq.Array(&e.ChangedFields), &details, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("compliance: failed to scan audit event: %w", err)
		}
		if len(details) > 0 {
			e.Details = json.RawMessage(details)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compliance: failed to iterate audit events: %w", err)
	}

	return events, nil
}

// AuditFilter specifies criteria for querying audit events.
type AuditFilter struct {
	SubjectID string
	Actor     string
	EventType AuditEventType
	StartTime time.Time
	EndTime   time.Time
	Limit     int
}

func nullJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
