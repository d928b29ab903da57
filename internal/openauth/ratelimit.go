package openauth

import (
	"sync"

	"golang.org/x/time/rate"
)

// sweepThreshold mirrors the "sweep at size > 50,000" resource cap: once
// the registry holds more entries than this, the next insert triggers a
// sweep of limiters that are currently full (no borrowed tokens),
// which are the ones safe to drop without affecting an in-flight burst.
const sweepThreshold = 50_000

// LimiterRegistry is a per-key (token+IP) fixed-window token bucket
// registry, grounded on the teacher's per-host rate.Limiter map idiom
// but without the adaptive rate adjustment (the open-platform window is
// fixed, not tuned by observed upstream 429s).
type LimiterRegistry struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewLimiterRegistry builds a registry where every key gets its own
// limiter at the given rate and burst.
func NewLimiterRegistry(rps rate.Limit, burst int) *LimiterRegistry {
	return &LimiterRegistry{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

// Allow reports whether key (typically "token_hash:ip") may proceed,
// creating its limiter on first use.
func (r *LimiterRegistry) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	limiter, ok := r.limiters[key]
	if !ok {
		if len(r.limiters) > sweepThreshold {
			r.sweepLocked()
		}
		limiter = rate.NewLimiter(r.rps, r.burst)
		r.limiters[key] = limiter
	}
	return limiter.Allow()
}

// sweepLocked drops limiters sitting at full burst capacity: they have
// no pending debt and can be safely recreated on next use. Caller holds mu.
func (r *LimiterRegistry) sweepLocked() {
	for key, limiter := range r.limiters {
		if limiter.Tokens() >= float64(r.burst) {
			delete(r.limiters, key)
		}
	}
}

// Len reports the current registry size, for tests and metrics.
func (r *LimiterRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}
