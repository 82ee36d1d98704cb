package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMemoryLimiterWindow(t *testing.T) {
	limiter := NewMemoryLimiter(Config{Requests: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "ip:1.2.3.4")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d denied inside the limit", i+1)
		}
	}

	allowed, err := limiter.Allow(ctx, "ip:1.2.3.4")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if allowed {
		t.Fatal("request beyond the limit was allowed")
	}
}

func TestMemoryLimiterKeysIndependent(t *testing.T) {
	limiter := NewMemoryLimiter(Config{Requests: 1, Window: time.Minute})
	ctx := context.Background()

	if allowed, _ := limiter.Allow(ctx, "ip:1.1.1.1"); !allowed {
		t.Fatal("first request denied")
	}
	if allowed, _ := limiter.Allow(ctx, "ip:1.1.1.1"); allowed {
		t.Fatal("second request for the same key allowed")
	}
	if allowed, _ := limiter.Allow(ctx, "ip:2.2.2.2"); !allowed {
		t.Fatal("other key affected by exhausted key")
	}
}

func TestMemoryLimiterWindowExpiry(t *testing.T) {
	limiter := NewMemoryLimiter(Config{Requests: 1, Window: 10 * time.Millisecond})
	ctx := context.Background()

	if allowed, _ := limiter.Allow(ctx, "k"); !allowed {
		t.Fatal("first request denied")
	}
	if allowed, _ := limiter.Allow(ctx, "k"); allowed {
		t.Fatal("second request allowed inside the window")
	}

	time.Sleep(20 * time.Millisecond)

	if allowed, _ := limiter.Allow(ctx, "k"); !allowed {
		t.Fatal("request denied after the window expired")
	}
}

func TestMemoryLimiterReset(t *testing.T) {
	limiter := NewMemoryLimiter(Config{Requests: 1, Window: time.Minute})
	ctx := context.Background()

	_, _ = limiter.Allow(ctx, "k")
	if allowed, _ := limiter.Allow(ctx, "k"); allowed {
		t.Fatal("limit not enforced before reset")
	}
	if err := limiter.Reset(ctx, "k"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if allowed, _ := limiter.Allow(ctx, "k"); !allowed {
		t.Fatal("request denied after reset")
	}
}

func TestMiddlewareTooManyRequests(t *testing.T) {
	limiter := NewMemoryLimiter(Config{Requests: 2, Window: time.Minute})
	handler := Middleware(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:51234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do(); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := do()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Too many authentication attempts") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:1234"
	if got := ClientIP(req); got != "192.0.2.7" {
		t.Errorf("ClientIP = %q, want 192.0.2.7", got)
	}

	req.RemoteAddr = "192.0.2.8"
	if got := ClientIP(req); got != "192.0.2.8" {
		t.Errorf("ClientIP = %q, want 192.0.2.8", got)
	}
}
