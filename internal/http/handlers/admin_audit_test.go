package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/carepulse/internal/compliance"
	httpmiddleware "github.com/wolfman30/carepulse/internal/http/middleware"
	"github.com/wolfman30/carepulse/pkg/logging"
)

type stubAudit struct {
	filter compliance.AuditFilter
	events []compliance.AuditEvent
	err    error
	calls  int
}

func (s *stubAudit) QueryEvents(_ context.Context, filter compliance.AuditFilter) ([]compliance.AuditEvent, error) {
	s.calls++
	s.filter = filter
	return s.events, s.err
}

func adminToken(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin-user",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func serveAudit(t *testing.T, audit *stubAudit, target string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewAdminAuditHandler(audit, logging.Discard())
	guarded := httpmiddleware.AdminJWT("secret")(http.HandlerFunc(h.ListEvents))

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "secret"))
	rec := httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	return rec
}

func TestAdminAuditListEvents(t *testing.T) {
	created := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	audit := &stubAudit{events: []compliance.AuditEvent{{
		ID:          "evt-1",
		EventType:   compliance.EventAppointmentStatusChanged,
		Actor:       "admin:admin-user",
		SubjectType: "appointment",
		SubjectID:   "appt-1",
		CreatedAt:   created,
	}}}

	rec := serveAudit(t, audit,
		"/admin/audit?subject_id=appt-1&event_type=appointment.status_changed&since=2026-10-01T00:00:00Z&limit=10")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "appt-1", audit.filter.SubjectID)
	assert.Equal(t, compliance.EventAppointmentStatusChanged, audit.filter.EventType)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), audit.filter.StartTime)
	assert.True(t, audit.filter.EndTime.IsZero())
	assert.Equal(t, 10, audit.filter.Limit)

	var body auditResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "evt-1", body.Events[0].ID)
}

func TestAdminAuditDefaultsAndCaps(t *testing.T) {
	audit := &stubAudit{}

	rec := serveAudit(t, audit, "/admin/audit")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultAuditLimit, audit.filter.Limit)
	assert.JSONEq(t, `{"events":[],"count":0}`, rec.Body.String())

	rec = serveAudit(t, audit, "/admin/audit?limit=100000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxAuditLimit, audit.filter.Limit)
}

func TestAdminAuditRejectsBadQuery(t *testing.T) {
	for _, target := range []string{
		"/admin/audit?since=yesterday",
		"/admin/audit?until=2026-13-01",
		"/admin/audit?limit=-1",
		"/admin/audit?limit=ten",
	} {
		audit := &stubAudit{}
		rec := serveAudit(t, audit, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Zero(t, audit.calls, target)
	}
}

func TestAdminAuditQueryFailure(t *testing.T) {
	rec := serveAudit(t, &stubAudit{err: errors.New("compliance: failed to query audit events: conn reset")}, "/admin/audit")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "conn reset")
}
