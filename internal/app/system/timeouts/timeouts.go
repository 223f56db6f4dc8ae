// Package timeouts provides centralized timeout values for handler operations.
//
// These timeouts are used with context.WithTimeout for database operations
// and other I/O in HTTP handlers. Using centralized values ensures consistency
// and makes it easy to adjust timeouts across the application.
//
// Guidelines for choosing a timeout:
//   - Ping: health checks and connectivity verification
//   - Short: simple single-document reads or lookups
//   - Medium: list queries, moderate writes, multi-step reads
//   - Long: complex writes, uploads, document conversion
package timeouts

import (
	"context"
	"sync"
	"time"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
)

// mu protects all timeout values from concurrent access.
var mu sync.RWMutex

var (
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	long   = DefaultLong
)

// Configure overrides the default timeouts. Zero values are ignored.
func Configure(pingT, shortT, mediumT, longT time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	if pingT > 0 {
		ping = pingT
	}
	if shortT > 0 {
		short = shortT
	}
	if mediumT > 0 {
		medium = mediumT
	}
	if longT > 0 {
		long = longT
	}
}

// Ping returns the timeout for health checks and connectivity verification.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Short returns the timeout for simple operations like single-document reads.
func Short() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return short
}

// Medium returns the timeout for list queries and moderate writes.
func Medium() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return medium
}

// Long returns the timeout for multi-collection writes and conversions.
func Long() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return long
}

// WithShort derives a context with the Short timeout.
func WithShort(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, Short())
}

// WithMedium derives a context with the Medium timeout.
func WithMedium(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, Medium())
}

// WithLong derives a context with the Long timeout.
func WithLong(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, Long())
}
