package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/carepulse/internal/appointments"
	"github.com/wolfman30/carepulse/internal/compliance"
	"github.com/wolfman30/carepulse/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/carepulse/internal/http/middleware"
	"github.com/wolfman30/carepulse/internal/observability/metrics"
	"github.com/wolfman30/carepulse/internal/patients"
	"github.com/wolfman30/carepulse/internal/store"
	"github.com/wolfman30/carepulse/pkg/logging"
)

const testSecret = "router-secret"

type emptyAudit struct{}

func (emptyAudit) QueryEvents(context.Context, compliance.AuditFilter) ([]compliance.AuditEvent, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, limiter *httpmiddleware.RateLimiter) http.Handler {
	t.Helper()

	logger := logging.Discard()
	reg := prometheus.NewRegistry()
	m := metrics.NewWorkflowMetrics(reg)

	docs := store.NewMemoryDocumentStore()
	patientSvc := patients.NewService(store.NewMemoryIdentityService(), docs, store.NewMemoryBlobStore(),
		patients.Config{BucketID: "ids", ProjectID: "proj", StorageEndpoint: "https://files.carepulse.test"},
		logger, patients.WithMetrics(m))
	apptSvc := appointments.NewService(docs, appointments.Config{}, logger, appointments.WithMetrics(m))

	return New(&Config{
		Logger:              logger,
		PatientsHandler:     patients.NewHandler(patientSvc, 0, logger),
		AppointmentsHandler: appointments.NewHandler(apptSvc, nil, m, logger),
		AuditHandler:        handlers.NewAdminAuditHandler(emptyAudit{}, logger),
		MetricsHandler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AdminAuthSecret:     testSecret,
		CORSAllowedOrigins:  []string{"https://portal.carepulse.test"},
		PublicRateLimiter:   limiter,
	})
}

func serve(h http.Handler, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func adminHeaders(t *testing.T) map[string]string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + signed}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := serve(router, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}

func TestRouterUnknownRouteIsJSON(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := serve(router, http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), `"error":"not found"`)
}

func TestRouterAdminRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := serve(router, http.MethodGet, "/admin/appointments", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serve(router, http.MethodPatch, "/admin/appointments/abc?action=schedule", []byte(`{}`), nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serve(router, http.MethodGet, "/admin/audit", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serve(router, http.MethodGet, "/admin/appointments", nil, adminHeaders(t))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(router, http.MethodGet, "/admin/audit", nil, adminHeaders(t))
	assert.Equal(t, http.StatusOK, rr.Code)
}

// Walks the whole patient journey through the public and admin surfaces.
func TestRouterPatientJourney(t *testing.T) {
	router := newTestRouter(t, nil)
	admin := adminHeaders(t)

	rr := serve(router, http.MethodPost, "/users", []byte(`{"name":"Jane Doe","email":"jane@example.com","phone":"+15551234567"}`), nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var user store.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))

	patientBody := mustJSON(t, map[string]any{
		"user_id":                  user.ID,
		"name":                     "Jane Doe",
		"email":                    "jane@example.com",
		"phone":                    "+15551234567",
		"birth_date":               "1990-04-12",
		"gender":                   "female",
		"address":                  "14 Elm Street",
		"occupation":               "Engineer",
		"emergency_contact_name":   "John Doe",
		"emergency_contact_number": "+15557654321",
		"primary_physician":        "Leila Cameron",
		"insurance_provider":       "BlueCross",
		"insurance_policy_number":  "ABC123",
		"treatment_consent":        true,
		"disclosure_consent":       true,
		"privacy_consent":          true,
	})
	rr = serve(router, http.MethodPost, "/patients", patientBody, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var patient patients.Patient
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &patient))

	rr = serve(router, http.MethodGet, "/users/"+user.ID+"/patient", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	apptBody := mustJSON(t, map[string]any{
		"user_id":           user.ID,
		"primary_physician": "Leila Cameron",
		"schedule":          "2026-11-02T10:00:00Z",
		"reason":            "Annual check-up",
	})
	rr = serve(router, http.MethodPost, "/patients/"+patient.ID+"/appointments", apptBody, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	location := rr.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "/patients/"+user.ID+"/new-appointment/success"), location)
	var created appointments.Created
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	rr = serve(router, http.MethodPatch, "/admin/appointments/"+created.Appointment.ID+"?action=schedule",
		[]byte(`{"primary_physician":"Leila Cameron","schedule":"2026-11-02T11:00:00Z"}`), admin)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = serve(router, http.MethodGet, "/admin/appointments", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	var dash appointments.Dashboard
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dash))
	assert.Equal(t, 1, dash.TotalCount)
	assert.Equal(t, 1, dash.ScheduledCount)

	rr = serve(router, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "carepulse_workflow_operations_total")
}

func TestRouterRateLimitsPublicRoutes(t *testing.T) {
	limiter := httpmiddleware.NewRateLimiter(0.001, 1)
	t.Cleanup(limiter.Close)
	router := newTestRouter(t, limiter)

	rr := serve(router, http.MethodGet, "/physicians", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(router, http.MethodGet, "/physicians", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr = serve(router, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouterCORSPreflight(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := serve(router, http.MethodOptions, "/patients", nil, map[string]string{
		"Origin":                        "https://portal.carepulse.test",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://portal.carepulse.test", rr.Header().Get("Access-Control-Allow-Origin"))
}
