package appointments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/carepulse/internal/http/respond"
	"github.com/wolfman30/carepulse/internal/observability/metrics"
	"github.com/wolfman30/carepulse/internal/validation"
	"github.com/wolfman30/carepulse/pkg/logging"
)

// DashboardCache holds the rendered dashboard between updates.
type DashboardCache interface {
	Get(ctx context.Context, path string) ([]byte, bool, error)
	Set(ctx context.Context, path string, payload []byte) error
}

// Handler exposes the appointment workflow over HTTP.
type Handler struct {
	service *Service
	cache   DashboardCache
	metrics *metrics.WorkflowMetrics
	logger  *logging.Logger
}

// NewHandler creates the appointment HTTP handler. cache may be nil.
func NewHandler(service *Service, cache DashboardCache, m *metrics.WorkflowMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, cache: cache, metrics: m, logger: logger}
}

// createBody is the patient-facing appointment request.
type createBody struct {
	UserID string `json:"user_id"`
	validation.AppointmentForm
}

// Create handles a patient's appointment request.
// POST /patients/{patientID}/appointments
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body createBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.Error(w, h.logger, fmt.Errorf("%w: invalid JSON body", respond.ErrBadRequest))
		return
	}

	created, err := h.service.Create(r.Context(), CreateRequest{
		UserID:    body.UserID,
		PatientID: chi.URLParam(r, "patientID"),
		Form:      body.AppointmentForm,
	})
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	w.Header().Set("Location", created.SuccessPath)
	respond.JSON(w, http.StatusCreated, created)
}

// Get returns one appointment.
// GET /appointments/{appointmentID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.service.Get(r.Context(), chi.URLParam(r, "appointmentID"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, appt)
}

// Dashboard returns the admin listing, served from cache when fresh.
// GET /admin/appointments
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.cache != nil {
		data, ok, err := h.cache.Get(ctx, DashboardPath)
		if err != nil {
			h.logger.Warn("dashboard cache read failed", "error", err)
		}
		h.metrics.ObserveCache(ok)
		if ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(data)
			return
		}
	}

	dash, err := h.service.ListRecent(ctx)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	data, err := json.Marshal(dash)
	if err != nil {
		respond.Error(w, h.logger, fmt.Errorf("appointments: encode dashboard: %w", err))
		return
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, DashboardPath, data); err != nil {
			h.logger.Warn("dashboard cache write failed", "error", err)
		}
		w.Header().Set("X-Cache", "MISS")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Update schedules or cancels an appointment.
// PATCH /admin/appointments/{appointmentID}?action=schedule|cancel
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	action, err := validation.ParseAction(r.URL.Query().Get("action"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	var form validation.AppointmentForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respond.Error(w, h.logger, fmt.Errorf("%w: invalid JSON body", respond.ErrBadRequest))
		return
	}

	appt, err := h.service.Update(r.Context(), UpdateRequest{
		AppointmentID: chi.URLParam(r, "appointmentID"),
		Form:          form,
	}, action)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, appt)
}

// ListPhysicians returns the clinic roster.
// GET /physicians
func (h *Handler) ListPhysicians(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, Physicians())
}
