// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter counts requests per key within a fixed window.
// It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	duration time.Duration
	cleanup  time.Duration
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a limiter allowing limit requests per duration for each key.
func New(limit int, duration time.Duration) *Limiter {
	l := &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		cleanup:  duration * 2,
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether a request for key fits in the current window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, exists := l.windows[key]

	if !exists || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}

	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Reset clears the window for key. Called after a successful login so a
// user who finally typed their password right is not still throttled.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanup)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for key, w := range l.windows {
			if now.After(w.expiresAt) {
				delete(l.windows, key)
			}
		}
		l.mu.Unlock()
	}
}

// ClientIP extracts the client IP from a request, preferring proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// LoginLimiter throttles login attempts by both source IP and login ID,
// so neither a single IP hammering many accounts nor many IPs hammering
// one account slips through.
type LoginLimiter struct {
	ipLimiter    *Limiter
	loginLimiter *Limiter
}

// NewLoginLimiter uses the defaults: 10 attempts per IP per minute,
// 5 attempts per login ID per 5 minutes.
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{
		ipLimiter:    New(10, time.Minute),
		loginLimiter: New(5, 5*time.Minute),
	}
}

// Check reports whether a login attempt is allowed. When blocked, the
// second return value carries a user-facing reason.
func (ll *LoginLimiter) Check(r *http.Request, loginID string) (bool, string) {
	if !ll.ipLimiter.Allow(ClientIP(r)) {
		return false, "too many login attempts; wait a minute before trying again"
	}
	if loginID != "" {
		key := strings.ToLower(strings.TrimSpace(loginID))
		if !ll.loginLimiter.Allow(key) {
			return false, "too many login attempts for this account; wait a few minutes"
		}
	}
	return true, ""
}

// ResetLogin clears the per-account window after a successful login.
func (ll *LoginLimiter) ResetLogin(loginID string) {
	if loginID != "" {
		ll.loginLimiter.Reset(strings.ToLower(strings.TrimSpace(loginID)))
	}
}
