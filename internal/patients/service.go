package patients

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/carepulse/internal/compliance"
	"github.com/wolfman30/carepulse/internal/observability/metrics"
	"github.com/wolfman30/carepulse/internal/store"
	"github.com/wolfman30/carepulse/internal/validation"
	"github.com/wolfman30/carepulse/pkg/logging"
)

var tracer = otel.Tracer("carepulse.internal.patients")

// Auditor records patient data writes for compliance.
type Auditor interface {
	LogPatientRegistered(ctx context.Context, patientID, userID string, fields []string) error
	LogDocumentUploaded(ctx context.Context, patientID, bucket, fileID string) error
}

// Config binds the workflow to its collection and storage bucket.
type Config struct {
	PatientCollection string
	BucketID          string
	ProjectID         string
	// StorageEndpoint is the public base URL used to build document view links.
	StorageEndpoint string
}

// Service registers users and patients.
type Service struct {
	identities store.IdentityService
	docs       store.DocumentStore
	blobs      store.BlobStore
	cfg        Config
	audit      Auditor
	metrics    *metrics.WorkflowMetrics
	logger     *logging.Logger
}

// Option configures optional collaborators.
type Option func(*Service)

func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.audit = a }
}

func WithMetrics(m *metrics.WorkflowMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(identities store.IdentityService, docs store.DocumentStore, blobs store.BlobStore, cfg Config, logger *logging.Logger, opts ...Option) *Service {
	if identities == nil || docs == nil || blobs == nil {
		panic("patients: identity, document and blob stores are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.PatientCollection == "" {
		cfg.PatientCollection = "patients"
	}
	s := &Service{identities: identities, docs: docs, blobs: blobs, cfg: cfg, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateUser registers an account. Registration is idempotent by email: when
// the address is taken the existing account is returned with existing=true.
func (s *Service) CreateUser(ctx context.Context, form validation.UserForm) (user *store.User, existing bool, err error) {
	ctx, span := tracer.Start(ctx, "patients.create_user")
	defer func() { s.finish(span, "user.create", err) }()

	input, err := validation.ValidateUser(form)
	if err != nil {
		s.metrics.ObserveValidationFailure("user")
		return nil, false, err
	}

	start := time.Now()
	user, err = s.identities.Create(ctx, store.NewID(), input.Email, input.Phone, input.Name)
	s.metrics.ObserveRemoteLatency("identities.create", time.Since(start).Seconds())
	if err == nil {
		span.SetAttributes(attribute.String("user.id", user.ID))
		s.logger.Info("user created", "user_id", user.ID)
		return user, false, nil
	}
	if !errors.Is(err, store.ErrConflict) {
		return nil, false, fmt.Errorf("patients: create user: %w", err)
	}

	start = time.Now()
	users, err := s.identities.List(ctx, store.UserFilter{Email: input.Email})
	s.metrics.ObserveRemoteLatency("identities.list", time.Since(start).Seconds())
	if err != nil {
		return nil, false, fmt.Errorf("patients: create user: list existing: %w", err)
	}
	if len(users) == 0 {
		return nil, false, fmt.Errorf("patients: create user: email conflict without a matching user: %w", store.ErrNotFound)
	}
	span.SetAttributes(attribute.String("user.id", users[0].ID), attribute.Bool("user.existing", true))
	s.logger.Info("user already registered", "user_id", users[0].ID, "email_fp", compliance.Fingerprint(input.Email))
	return &users[0], true, nil
}

// GetUser returns one account.
func (s *Service) GetUser(ctx context.Context, id string) (user *store.User, err error) {
	ctx, span := tracer.Start(ctx, "patients.get_user")
	defer func() { s.finish(span, "user.get", err) }()

	start := time.Now()
	user, err = s.identities.Get(ctx, id)
	s.metrics.ObserveRemoteLatency("identities.get", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("patients: get user %s: %w", id, err)
	}
	return user, nil
}

// RegisterPatient validates the form, uploads file when given, and stores the
// patient. The user must exist and own no profile yet. An upload failure
// aborts before anything is written.
func (s *Service) RegisterPatient(ctx context.Context, form validation.PatientForm, file *store.File) (patient *Patient, err error) {
	ctx, span := tracer.Start(ctx, "patients.register")
	defer func() { s.finish(span, "patient.register", err) }()
	span.SetAttributes(attribute.Bool("patient.has_document", file != nil))

	input, err := validation.ValidatePatient(form)
	if err != nil {
		s.metrics.ObserveValidationFailure("patient")
		return nil, err
	}

	record := Patient{
		UserID:                 input.UserID,
		Name:                   input.Name,
		Email:                  input.Email,
		Phone:                  input.Phone,
		BirthDate:              input.BirthDate,
		Gender:                 input.Gender,
		Address:                input.Address,
		Occupation:             input.Occupation,
		EmergencyContactName:   input.EmergencyContactName,
		EmergencyContactNumber: input.EmergencyContactNumber,
		PrimaryPhysician:       input.PrimaryPhysician,
		InsuranceProvider:      input.InsuranceProvider,
		InsurancePolicyNumber:  input.InsurancePolicyNumber,
		Allergies:              input.Allergies,
		CurrentMedication:      input.CurrentMedication,
		FamilyMedicalHistory:   input.FamilyMedicalHistory,
		PastMedicalHistory:     input.PastMedicalHistory,
		IdentificationType:     input.IdentificationType,
		IdentificationNumber:   input.IdentificationNumber,
		TreatmentConsent:       input.TreatmentConsent,
		DisclosureConsent:      input.DisclosureConsent,
		PrivacyConsent:         input.PrivacyConsent,
	}

	if file != nil && len(file.Data) == 0 {
		return nil, &validation.Error{Fields: map[string]string{"identification_document": "Identification document is empty"}}
	}
	if err := s.checkOwner(ctx, input.UserID); err != nil {
		return nil, err
	}

	var ref *store.FileRef
	if file != nil {
		start := time.Now()
		ref, err = s.blobs.CreateFile(ctx, s.cfg.BucketID, store.NewID(), *file)
		s.metrics.ObserveRemoteLatency("blobs.create", time.Since(start).Seconds())
		if err != nil {
			return nil, fmt.Errorf("patients: upload identification document: %w", err)
		}
		url := store.ViewURL(s.cfg.StorageEndpoint, ref.Bucket, s.cfg.ProjectID, ref.ID)
		record.IdentificationDocumentID = &ref.ID
		record.IdentificationDocumentURL = &url
	}

	fields, err := store.Encode(record)
	if err != nil {
		return nil, fmt.Errorf("patients: register: %w", err)
	}
	start := time.Now()
	doc, err := s.docs.CreateDocument(ctx, s.cfg.PatientCollection, store.NewID(), fields)
	s.metrics.ObserveRemoteLatency("documents.create", time.Since(start).Seconds())
	if err != nil {
		if ref != nil {
			s.logger.Warn("patients: document stored but patient write failed", "file_id", ref.ID, "bucket", ref.Bucket)
		}
		return nil, fmt.Errorf("patients: register: %w", err)
	}

	var out Patient
	if err := store.Decode(doc, &out); err != nil {
		return nil, fmt.Errorf("patients: register: %w", err)
	}
	span.SetAttributes(attribute.String("patient.id", out.ID))

	if s.audit != nil {
		if err := s.audit.LogPatientRegistered(ctx, out.ID, out.UserID, fieldNames(fields)); err != nil {
			s.logger.Error("patients: audit register failed", "error", err, "patient_id", out.ID)
		}
		if ref != nil {
			if err := s.audit.LogDocumentUploaded(ctx, out.ID, ref.Bucket, ref.ID); err != nil {
				s.logger.Error("patients: audit upload failed", "error", err, "patient_id", out.ID)
			}
		}
	}

	s.logger.Info("patient registered", "patient_id", out.ID, "user_id", out.UserID, "has_document", ref != nil)
	return &out, nil
}

// checkOwner verifies the user exists and has not registered a profile yet.
func (s *Service) checkOwner(ctx context.Context, userID string) error {
	start := time.Now()
	_, err := s.identities.Get(ctx, userID)
	s.metrics.ObserveRemoteLatency("identities.get", time.Since(start).Seconds())
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("patients: register: check user %s: %w", userID, err)
	}

	start = time.Now()
	list, err := s.docs.ListDocuments(ctx, s.cfg.PatientCollection, store.Query{
		Filters: []store.Filter{store.Equal("user_id", userID)},
	})
	s.metrics.ObserveRemoteLatency("documents.list", time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("patients: register: check profile %s: %w", userID, err)
	}
	if list.Total > 0 {
		return ErrAlreadyRegistered
	}
	return nil
}

// GetPatientByUser returns the patient profile registered by a user.
func (s *Service) GetPatientByUser(ctx context.Context, userID string) (patient *Patient, err error) {
	ctx, span := tracer.Start(ctx, "patients.get_by_user")
	defer func() { s.finish(span, "patient.get_by_user", err) }()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	list, err := s.docs.ListDocuments(ctx, s.cfg.PatientCollection, store.Query{
		Filters: []store.Filter{store.Equal("user_id", userID)},
		Order:   store.OrderCreatedAsc,
	})
	s.metrics.ObserveRemoteLatency("documents.list", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("patients: get by user %s: %w", userID, err)
	}
	if len(list.Documents) == 0 {
		return nil, fmt.Errorf("patients: get by user %s: %w", userID, store.ErrNotFound)
	}
	var out Patient
	if err := store.Decode(&list.Documents[0], &out); err != nil {
		return nil, fmt.Errorf("patients: get by user %s: %w", userID, err)
	}
	return &out, nil
}

// GetPatient returns one patient by id.
func (s *Service) GetPatient(ctx context.Context, id string) (patient *Patient, err error) {
	ctx, span := tracer.Start(ctx, "patients.get")
	defer func() { s.finish(span, "patient.get", err) }()

	start := time.Now()
	doc, err := s.docs.GetDocument(ctx, s.cfg.PatientCollection, id)
	s.metrics.ObserveRemoteLatency("documents.get", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("patients: get %s: %w", id, err)
	}
	var out Patient
	if err := store.Decode(doc, &out); err != nil {
		return nil, fmt.Errorf("patients: get %s: %w", id, err)
	}
	return &out, nil
}

func (s *Service) finish(span trace.Span, op string, err error) {
	defer span.End()
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, validation.ErrInvalid):
		outcome = "invalid"
	case errors.Is(err, store.ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, store.ErrConflict):
		outcome = "conflict"
	case errors.Is(err, store.ErrUnavailable):
		outcome = "unavailable"
	default:
		outcome = "error"
	}
	s.metrics.ObserveOperation(op, outcome)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
}

// fieldNames lists the non-empty fields written, for the audit trail.
func fieldNames(fields map[string]any) []string {
	names := make([]string, 0, len(fields))
	for k, v := range fields {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
