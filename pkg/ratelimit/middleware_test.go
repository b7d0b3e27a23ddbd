package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(m *Middleware, method, path, ip string) int {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	m.Handler(okHandler()).ServeHTTP(w, req)
	return w.Code
}

func TestMiddleware_PerIPLimit(t *testing.T) {
	m := NewMiddleware(&Config{
		PerIPEnabled:    true,
		PerIPCapacity:   2,
		PerIPRefillRate: 0.001,
		EndpointLimits:  map[string]EndpointLimit{},
	})

	if code := doRequest(m, "GET", "/auth/2fa", "203.0.113.1"); code != http.StatusOK {
		t.Errorf("first request: expected 200, got %d", code)
	}
	if code := doRequest(m, "GET", "/auth/2fa", "203.0.113.1"); code != http.StatusOK {
		t.Errorf("second request: expected 200, got %d", code)
	}
	if code := doRequest(m, "GET", "/auth/2fa", "203.0.113.1"); code != http.StatusTooManyRequests {
		t.Errorf("third request: expected 429, got %d", code)
	}

	// another IP gets its own bucket
	if code := doRequest(m, "GET", "/auth/2fa", "203.0.113.2"); code != http.StatusOK {
		t.Errorf("other ip: expected 200, got %d", code)
	}
}

func TestMiddleware_EndpointLimit(t *testing.T) {
	m := NewMiddleware(&Config{
		PerIPEnabled: false,
		BucketTTL:    time.Hour,
		EndpointLimits: map[string]EndpointLimit{
			"POST /auth/login": {Capacity: 1, RefillRate: 0.001},
		},
	})

	if code := doRequest(m, "POST", "/auth/login", "203.0.113.1"); code != http.StatusOK {
		t.Errorf("first login: expected 200, got %d", code)
	}
	if code := doRequest(m, "POST", "/auth/login", "203.0.113.1"); code != http.StatusTooManyRequests {
		t.Errorf("second login: expected 429, got %d", code)
	}

	// other endpoints are not throttled
	if code := doRequest(m, "GET", "/auth/2fa", "203.0.113.1"); code != http.StatusOK {
		t.Errorf("other endpoint: expected 200, got %d", code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.1:4567"
	if ip := ClientIP(req); ip != "203.0.113.1" {
		t.Errorf("expected RemoteAddr IP, got %q", ip)
	}

	req.Header.Set("X-Real-IP", "198.51.100.7")
	if ip := ClientIP(req); ip != "198.51.100.7" {
		t.Errorf("expected X-Real-IP, got %q", ip)
	}

	req.Header.Set("X-Forwarded-For", "192.0.2.9, 198.51.100.7")
	if ip := ClientIP(req); ip != "192.0.2.9" {
		t.Errorf("expected first X-Forwarded-For entry, got %q", ip)
	}
}
