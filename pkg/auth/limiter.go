package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRPS   = 5
	defaultBurst = 10
	// Buckets idle longer than this are dropped, so one-off callers (every
	// distinct unauthenticated IP gets its own bucket) do not grow the map
	// without bound.
	limiterIdleTTL = 10 * time.Minute
)

// keyLimiter is one caller's token bucket plus when it was last consulted.
type keyLimiter struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// limiterPool hands out one token bucket per API key, or per remote IP for
// unauthenticated callers, and sweeps idle buckets lazily on use.
type limiterPool struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*keyLimiter
	sweptAt time.Time
	now     func() time.Time
}

func newLimiterPool(cfg SecConfig) *limiterPool {
	rps := cfg.RPS
	if rps <= 0 {
		rps = defaultRPS
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	return &limiterPool{
		limit:   rate.Limit(rps),
		burst:   burst,
		buckets: make(map[string]*keyLimiter),
		now:     time.Now,
	}
}

// Allow reports whether key may make one more request right now.
func (p *limiterPool) Allow(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if now.Sub(p.sweptAt) >= limiterIdleTTL {
		p.sweepLocked(now)
	}
	kl, ok := p.buckets[key]
	if !ok {
		kl = &keyLimiter{bucket: rate.NewLimiter(p.limit, p.burst)}
		p.buckets[key] = kl
	}
	kl.lastSeen = now
	return kl.bucket.Allow()
}

func (p *limiterPool) sweepLocked(now time.Time) {
	for key, kl := range p.buckets {
		if now.Sub(kl.lastSeen) >= limiterIdleTTL {
			delete(p.buckets, key)
		}
	}
	p.sweptAt = now
}
