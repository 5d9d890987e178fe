package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, rate float64, burst int) (*RateLimiter, *time.Time) {
	t.Helper()
	rl := NewRateLimiter(rate, burst)
	t.Cleanup(rl.Close)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiterBurstThenRefill(t *testing.T) {
	rl, now := newTestLimiter(t, 1, 2)

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow("10.0.0.1"); !ok {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	ok, wait := rl.Allow("10.0.0.1")
	if ok {
		t.Fatalf("third request should be limited")
	}
	if wait <= 0 || wait > time.Second {
		t.Fatalf("unexpected wait %v", wait)
	}
	if ok, _ := rl.Allow("10.0.0.2"); !ok {
		t.Fatalf("other clients keep their own bucket")
	}

	*now = now.Add(time.Second)
	if ok, _ := rl.Allow("10.0.0.1"); !ok {
		t.Fatalf("token should refill after one second")
	}
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	rl, now := newTestLimiter(t, 1, 1)
	rl.Allow("10.0.0.1")
	*now = now.Add(limiterIdleTTL + time.Second)
	rl.evictIdle()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.buckets) != 0 {
		t.Fatalf("expected idle bucket to be evicted, got %d", len(rl.buckets))
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 0.5, 1)
	h := rl.Middleware(okHandler(nil))

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/users", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := send("192.0.2.1:4000"); rec.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}
	rec := send("192.0.2.1:5000")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for same host on a new port, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After 2, got %q", got)
	}
	if rec := send("192.0.2.2:4000"); rec.Code != http.StatusOK {
		t.Fatalf("expected other host to pass, got %d", rec.Code)
	}
}

func TestRateLimiterCloseIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Close()
	rl.Close()
}
