package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter holds one token bucket per provider host.
type HostLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewHostLimiter creates a limiter allowing requestsPerSecond per host with
// the given burst. A non-positive rate disables limiting.
func NewHostLimiter(requestsPerSecond float64, burst int) *HostLimiter {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     limit,
		burst:    burst,
	}
}

func (hl *HostLimiter) getLimiter(host string) *rate.Limiter {
	host = strings.ToLower(host)

	hl.mu.RLock()
	limiter, exists := hl.limiters[host]
	hl.mu.RUnlock()
	if exists {
		return limiter
	}

	hl.mu.Lock()
	defer hl.mu.Unlock()
	if limiter, exists = hl.limiters[host]; !exists {
		limiter = rate.NewLimiter(hl.rate, hl.burst)
		hl.limiters[host] = limiter
	}
	return limiter
}

// Wait blocks until a request to host is permitted or ctx is done.
func (hl *HostLimiter) Wait(ctx context.Context, host string) error {
	start := time.Now()
	err := hl.getLimiter(host).Wait(ctx)
	limiterWaitSeconds.WithLabelValues(strings.ToLower(host)).Observe(time.Since(start).Seconds())
	return err
}

// Allow reports whether a request to host may happen now, consuming a token if so.
func (hl *HostLimiter) Allow(host string) bool {
	return hl.getLimiter(host).Allow()
}

// Len returns the number of hosts with a limiter.
func (hl *HostLimiter) Len() int {
	hl.mu.RLock()
	defer hl.mu.RUnlock()
	return len(hl.limiters)
}

// Cleanup periodically drops limiters whose bucket is full again, until ctx is done.
func (hl *HostLimiter) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hl.prune()
		}
	}
}

func (hl *HostLimiter) prune() {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	for host, limiter := range hl.limiters {
		if limiter.Tokens() >= float64(hl.burst) {
			delete(hl.limiters, host)
		}
	}
}
