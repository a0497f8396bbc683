package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter smooths outbound calls per provider so a burst of checks never
// hammers one backend. Quota accounting is separate; this only shapes
// short-term request rate.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter with a shared default rate per provider
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait blocks until the provider's limiter clears the call
func (l *Limiter) Wait(ctx context.Context, providerID string) error {
	return l.getLimiter(providerID).Wait(ctx)
}

// Allow reports whether a call may proceed without waiting
func (l *Limiter) Allow(providerID string) bool {
	return l.getLimiter(providerID).Allow()
}

// SetProviderRate overrides the rate for a specific provider
func (l *Limiter) SetProviderRate(providerID string, requestsPerSecond float64, burst int) {
	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[providerID] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func (l *Limiter) getLimiter(providerID string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[providerID]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[providerID]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[providerID] = limiter
	return limiter
}
