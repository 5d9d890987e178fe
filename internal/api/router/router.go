package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/carepulse/internal/appointments"
	"github.com/wolfman30/carepulse/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/carepulse/internal/http/middleware"
	"github.com/wolfman30/carepulse/internal/http/respond"
	"github.com/wolfman30/carepulse/internal/patients"
	"github.com/wolfman30/carepulse/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	PatientsHandler     *patients.Handler
	AppointmentsHandler *appointments.Handler
	AuditHandler        *handlers.AdminAuditHandler
	MetricsHandler      http.Handler

	// AdminAuthSecret signs the HS256 tokens accepted on /admin routes.
	AdminAuthSecret    string
	CORSAllowedOrigins []string

	// PublicRateLimiter throttles patient-facing writes. Optional.
	PublicRateLimiter *httpmiddleware.RateLimiter

	// RequestTimeout bounds each request's context. Zero disables it.
	RequestTimeout time.Duration
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusNotFound, respond.ErrorBody{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusMethodNotAllowed, respond.ErrorBody{Error: "method not allowed"})
	})

	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Patient-facing routes.
	r.Group(func(public chi.Router) {
		if cfg.PublicRateLimiter != nil {
			public.Use(cfg.PublicRateLimiter.Middleware)
		}
		if h := cfg.PatientsHandler; h != nil {
			public.Post("/users", h.CreateUser)
			public.Get("/users/{userID}", h.GetUser)
			public.Get("/users/{userID}/patient", h.GetPatientByUser)
			public.Post("/patients", h.RegisterPatient)
			public.Get("/patients/{patientID}", h.GetPatient)
		}
		if h := cfg.AppointmentsHandler; h != nil {
			public.Get("/physicians", h.ListPhysicians)
			public.Post("/patients/{patientID}/appointments", h.Create)
			public.Get("/appointments/{appointmentID}", h.Get)
		}
	})

	// Administrator dashboard and audit trail.
	if cfg.AppointmentsHandler != nil || cfg.AuditHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if h := cfg.AppointmentsHandler; h != nil {
				admin.Get("/appointments", h.Dashboard)
				admin.Patch("/appointments/{appointmentID}", h.Update)
			}
			if h := cfg.AuditHandler; h != nil {
				admin.Get("/audit", h.ListEvents)
			}
		})
	}

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
