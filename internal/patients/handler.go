package patients

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/carepulse/internal/http/respond"
	"github.com/wolfman30/carepulse/internal/store"
	"github.com/wolfman30/carepulse/internal/validation"
	"github.com/wolfman30/carepulse/pkg/logging"
)

const (
	patientPart  = "patient"
	documentPart = "identification_document"
)

// Handler exposes registration over HTTP.
type Handler struct {
	service        *Service
	maxUploadBytes int64
	logger         *logging.Logger
}

// NewHandler creates the registration handler. maxUploadBytes caps the
// multipart body; zero means 10 MiB.
func NewHandler(service *Service, maxUploadBytes int64, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Handler{service: service, maxUploadBytes: maxUploadBytes, logger: logger}
}

// CreateUser registers an account, returning the existing one for a known email.
// POST /users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var form validation.UserForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respond.Error(w, h.logger, fmt.Errorf("%w: invalid JSON body", respond.ErrBadRequest))
		return
	}
	user, existing, err := h.service.CreateUser(r.Context(), form)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	status := http.StatusCreated
	if existing {
		status = http.StatusOK
	}
	respond.JSON(w, status, user)
}

// GetUser returns one account.
// GET /users/{userID}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, user)
}

// RegisterPatient accepts either a JSON body or a multipart form with a
// "patient" JSON part and an optional "identification_document" file.
// POST /patients
func (h *Handler) RegisterPatient(w http.ResponseWriter, r *http.Request) {
	form, file, err := h.readRegistration(w, r)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	patient, err := h.service.RegisterPatient(r.Context(), form, file)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	w.Header().Set("Location", "/patients/"+patient.ID)
	respond.JSON(w, http.StatusCreated, patient)
}

// GetPatientByUser returns the profile registered by a user.
// GET /users/{userID}/patient
func (h *Handler) GetPatientByUser(w http.ResponseWriter, r *http.Request) {
	patient, err := h.service.GetPatientByUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, patient)
}

// GetPatient returns one patient.
// GET /patients/{patientID}
func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	patient, err := h.service.GetPatient(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, patient)
}

func (h *Handler) readRegistration(w http.ResponseWriter, r *http.Request) (validation.PatientForm, *store.File, error) {
	var form validation.PatientForm
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			return form, nil, fmt.Errorf("%w: invalid JSON body", respond.ErrBadRequest)
		}
		return form, nil, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return form, nil, &validation.Error{Fields: map[string]string{
				documentPart: fmt.Sprintf("File must be at most %d bytes", h.maxUploadBytes),
			}}
		}
		return form, nil, fmt.Errorf("%w: invalid multipart body", respond.ErrBadRequest)
	}
	raw := r.FormValue(patientPart)
	if strings.TrimSpace(raw) == "" {
		return form, nil, fmt.Errorf("%w: missing %q part", respond.ErrBadRequest, patientPart)
	}
	if err := json.Unmarshal([]byte(raw), &form); err != nil {
		return form, nil, fmt.Errorf("%w: invalid %q part", respond.ErrBadRequest, patientPart)
	}

	part, header, err := r.FormFile(documentPart)
	if errors.Is(err, http.ErrMissingFile) {
		return form, nil, nil
	}
	if err != nil {
		return form, nil, fmt.Errorf("%w: unreadable %q part", respond.ErrBadRequest, documentPart)
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		return form, nil, fmt.Errorf("%w: unreadable %q part", respond.ErrBadRequest, documentPart)
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return form, &store.File{Name: header.Filename, ContentType: contentType, Data: data}, nil
}
