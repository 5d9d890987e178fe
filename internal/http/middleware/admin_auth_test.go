package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/carepulse/internal/actor"
)

func runAdminJWT(t *testing.T, secret, header string, next http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/admin/appointments", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	if next == nil {
		next = func(w http.ResponseWriter, r *http.Request) {}
	}
	AdminJWT(secret)(next).ServeHTTP(rec, req)
	return rec
}

func TestAdminJWTRejects(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
	}{
		{"missing secret", "", "Bearer " + signedAdminToken(t, "secret", jwt.SigningMethodHS256, time.Minute)},
		{"missing header", "secret", ""},
		{"wrong scheme", "secret", "Basic abc"},
		{"wrong key", "secret", "Bearer " + signedAdminToken(t, "wrong", jwt.SigningMethodHS256, time.Minute)},
		{"expired", "secret", "Bearer " + signedAdminToken(t, "secret", jwt.SigningMethodHS256, -time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := runAdminJWT(t, tt.secret, tt.header, func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("handler must not be called")
			})
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
			}
			if rec.Header().Get("Content-Type") != "application/json" {
				t.Fatalf("expected JSON error body")
			}
		})
	}
}

func TestAdminJWTValidToken(t *testing.T) {
	called := false
	rec := runAdminJWT(t, "secret", "Bearer "+signedAdminToken(t, "secret", jwt.SigningMethodHS256, 5*time.Minute),
		func(w http.ResponseWriter, r *http.Request) {
			called = true
			if _, ok := AdminClaimsFromContext(r.Context()); !ok {
				t.Fatalf("expected admin claims in context")
			}
			if got := actor.Subject(r.Context()); got != "admin:admin-user" {
				t.Fatalf("expected actor admin:admin-user, got %q", got)
			}
			w.WriteHeader(http.StatusOK)
		})

	if !called {
		t.Fatalf("expected handler to be called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func signedAdminToken(t *testing.T, secret string, method jwt.SigningMethod, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "admin-user",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
