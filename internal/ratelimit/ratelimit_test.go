package ratelimit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAllowRespectsBurst(t *testing.T) {
	rl := New(Config{Rate: 0.001, Burst: 2})
	defer rl.Stop()

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("expected burst of 2 to be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("expected third request to be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("expected a different IP to have its own bucket")
	}
	if rl.Len() != 2 {
		t.Fatalf("expected 2 tracked IPs, got %d", rl.Len())
	}
}

func TestMiddlewarePlainText(t *testing.T) {
	rl := New(Config{Rate: 0.001, Burst: 1})
	defer rl.Stop()
	handler := rl.Middleware("waitlist", okHandler())

	req := httptest.NewRequest(http.MethodPost, "/waitlist", nil)
	req.RemoteAddr = "192.0.2.1:1234"

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected first request through, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), LimitedMessage) {
		t.Fatalf("expected limit message, got %q", rr.Body.String())
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestMiddlewareJSON(t *testing.T) {
	rl := New(Config{Rate: 0.001, Burst: 1})
	defer rl.Stop()
	handler := rl.Middleware("api_waitlist", okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/waitlist", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "192.0.2.9:1234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if i == 1 {
			if rr.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("expected JSON content type, got %q", ct)
			}
			if !strings.Contains(rr.Body.String(), `"status":"error"`) {
				t.Fatalf("expected JSON error body, got %q", rr.Body.String())
			}
		}
	}
}

func TestCleanupDropsStaleEntries(t *testing.T) {
	rl := New(Config{Rate: 1, Burst: 1, MaxAge: time.Minute})
	defer rl.Stop()
	now := time.Now()
	rl.now = func() time.Time { return now }

	rl.Allow("10.0.0.1")
	now = now.Add(2 * time.Minute)
	rl.Allow("10.0.0.2")
	rl.cleanupStaleEntries()

	if rl.Len() != 1 {
		t.Fatalf("expected 1 entry after cleanup, got %d", rl.Len())
	}
}

func TestClientIPIgnoresForwardedHeadersFromUntrustedPeer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	req.Header.Set("X-Real-IP", "203.0.113.5")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")

	if ip := ClientIP(req, nil); ip != "198.51.100.7" {
		t.Fatalf("expected peer address without trusted proxies, got %q", ip)
	}
	trusted := mustParseProxies(t, "10.0.0.0/8")
	if ip := ClientIP(req, trusted); ip != "198.51.100.7" {
		t.Fatalf("expected peer address from untrusted peer, got %q", ip)
	}
}

func TestClientIPBehindTrustedProxy(t *testing.T) {
	trusted := mustParseProxies(t, "10.0.0.0/8", "127.0.0.1")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	req.Header.Set("X-Real-IP", "203.0.113.5")
	if ip := ClientIP(req, trusted); ip != "203.0.113.5" {
		t.Fatalf("expected X-Real-IP, got %q", ip)
	}

	// The client can prepend anything; the hop appended by our proxy wins.
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 203.0.113.9, 10.0.0.2")
	if ip := ClientIP(req, trusted); ip != "203.0.113.9" {
		t.Fatalf("expected rightmost untrusted hop, got %q", ip)
	}

	req.Header.Set("X-Forwarded-For", "10.0.0.3, 10.0.0.2")
	if ip := ClientIP(req, trusted); ip != "10.0.0.3" {
		t.Fatalf("expected leftmost hop when every hop is trusted, got %q", ip)
	}
}

func TestSpoofedForwardedForIsStillLimited(t *testing.T) {
	rl := New(Config{Rate: 0.001, Burst: 5})
	defer rl.Stop()
	handler := rl.Middleware("waitlist", okHandler())

	passed := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/waitlist", nil)
		req.RemoteAddr = "192.0.2.50:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code == http.StatusNoContent {
			passed++
		}
	}
	if passed != 5 {
		t.Fatalf("expected only the burst of 5 through, got %d", passed)
	}
	if rl.Len() != 1 {
		t.Fatalf("expected one tracked address, got %d", rl.Len())
	}
}

func TestParseTrustedProxies(t *testing.T) {
	prefixes := mustParseProxies(t, " 10.0.0.0/8 ", "192.168.1.1", "", "::1")
	if len(prefixes) != 3 {
		t.Fatalf("expected 3 prefixes, got %d", len(prefixes))
	}
	if prefixes[1].Bits() != 32 || prefixes[2].Bits() != 128 {
		t.Fatalf("expected single-host prefixes for bare addresses, got %v", prefixes)
	}
	if _, err := ParseTrustedProxies([]string{"not-an-ip"}); err == nil {
		t.Fatal("expected error for invalid proxy")
	}
}

func mustParseProxies(t *testing.T, values ...string) []netip.Prefix {
	t.Helper()
	prefixes, err := ParseTrustedProxies(values)
	if err != nil {
		t.Fatalf("parse proxies: %v", err)
	}
	return prefixes
}

func TestStopIsIdempotent(t *testing.T) {
	rl := New(DefaultSubmitConfig())
	rl.Stop()
	rl.Stop()
}
