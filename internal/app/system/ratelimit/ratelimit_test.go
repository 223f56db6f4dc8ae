package ratelimit_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clarityhealth/claritymdt/internal/app/system/ratelimit"
)

func TestLimiter_AllowUpToLimit(t *testing.T) {
	l := ratelimit.New(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("k") {
		t.Error("request over the limit should be denied")
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := ratelimit.New(1, time.Minute)

	if !l.Allow("a") {
		t.Fatal("first request for a should be allowed")
	}
	if !l.Allow("b") {
		t.Error("b should not be affected by a's window")
	}
}

func TestLimiter_Reset(t *testing.T) {
	l := ratelimit.New(1, time.Minute)

	l.Allow("k")
	if l.Allow("k") {
		t.Fatal("second request should be denied")
	}
	l.Reset("k")
	if !l.Allow("k") {
		t.Error("request after reset should be allowed")
	}
}

func TestLimiter_WindowExpiry(t *testing.T) {
	l := ratelimit.New(1, 20*time.Millisecond)

	l.Allow("k")
	time.Sleep(30 * time.Millisecond)
	if !l.Allow("k") {
		t.Error("request after window expiry should be allowed")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:4321"
	if got := ratelimit.ClientIP(r); got != "10.0.0.1" {
		t.Errorf("ClientIP from RemoteAddr: got %q", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := ratelimit.ClientIP(r); got != "203.0.113.7" {
		t.Errorf("ClientIP from X-Forwarded-For: got %q", got)
	}
}

func TestLoginLimiter_PerAccount(t *testing.T) {
	ll := ratelimit.NewLoginLimiter()

	var blocked bool
	for i := 0; i < 6; i++ {
		r := httptest.NewRequest("POST", "/login", nil)
		r.RemoteAddr = "192.0.2.1:1000"
		// Rotate IPs so only the per-account limit can trip.
		r.Header.Set("X-Forwarded-For", "198.51.100."+string(rune('1'+i)))
		ok, reason := ll.Check(r, "chen@example.org")
		if !ok {
			blocked = true
			if reason == "" {
				t.Error("expected a reason when blocked")
			}
			break
		}
	}
	if !blocked {
		t.Error("expected per-account limit to trip within 6 attempts")
	}
}
