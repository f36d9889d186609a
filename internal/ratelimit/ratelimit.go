// Package ratelimit applies per-tenant ingestion backpressure: a token
// bucket per tenant, sized from Tenant.RateLimit, independent of the
// excluded HTTP-layer auth/rate-limit middleware.
package ratelimit

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Limiter holds one token bucket per tenant, created lazily on first use
// and sized in requests per minute.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[uuid.UUID]*rate.Limiter
	fallback int // requests per minute for tenants with no configured limit
}

// New returns a Limiter that falls back to fallbackPerMinute for any
// tenant whose own rate limit is zero.
func New(fallbackPerMinute int) *Limiter {
	return &Limiter{
		buckets:  make(map[uuid.UUID]*rate.Limiter),
		fallback: fallbackPerMinute,
	}
}

// Allow reports whether tenantID may perform one more ingestion request
// right now, consuming a token if so.
func (l *Limiter) Allow(tenantID uuid.UUID, perMinute int) bool {
	return l.bucketFor(tenantID, perMinute).Allow()
}

func (l *Limiter) bucketFor(tenantID uuid.UUID, perMinute int) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[tenantID]; ok {
		return b
	}
	if perMinute <= 0 {
		perMinute = l.fallback
	}
	// Burst equal to one minute's allowance: smooths request-time jitter
	// without letting a tenant save up more than a minute of quota.
	b := rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
	l.buckets[tenantID] = b
	return b
}
