// Package ratelimit limits requests per client and endpoint with token
// buckets.
package ratelimit

import (
	"sync"
	"time"
)

// bucket refills continuously at rate tokens per second up to capacity.
type bucket struct {
	tokens   float64
	capacity float64
	rate     float64
	last     time.Time
}

func (b *bucket) refill(now time.Time) {
	b.tokens = min(b.capacity, b.tokens+now.Sub(b.last).Seconds()*b.rate)
	b.last = now
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Limiter tracks one bucket per client, method and rule.
type Limiter struct {
	cfg *Config
	now func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastPrune time.Time
}

// NewLimiter creates a limiter. A nil config disables limiting.
func NewLimiter(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Limiter{cfg: cfg, now: time.Now, buckets: make(map[string]*bucket)}
}

// Allow consumes a token for clientID on method and path.
func (l *Limiter) Allow(clientID, method, path string) Decision {
	if l == nil || !l.cfg.Enabled || l.cfg.Exempt[clientID] {
		return Decision{Allowed: true}
	}

	rule := l.cfg.Default
	key := clientID + " " + method + " *"
	for _, r := range l.cfg.Rules {
		if r.matches(method, path) {
			rule = r
			key = clientID + " " + r.Method + " " + r.Path
			break
		}
	}
	if rule.Limit <= 0 || rule.Window <= 0 {
		return Decision{Allowed: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)

	b, ok := l.buckets[key]
	if !ok {
		capacity := float64(rule.capacity())
		b = &bucket{tokens: capacity, capacity: capacity, rate: float64(rule.Limit) / rule.Window.Seconds(), last: now}
		l.buckets[key] = b
	}
	b.refill(now)

	d := Decision{Limit: rule.Limit}
	if b.tokens >= 1 {
		b.tokens--
		d.Allowed = true
	} else {
		d.RetryAfter = time.Duration((1 - b.tokens) / b.rate * float64(time.Second))
	}
	d.Remaining = int(b.tokens)
	d.ResetAt = now.Add(time.Duration((b.capacity - b.tokens) / b.rate * float64(time.Second)))
	return d
}

// pruneLocked drops buckets idle longer than IdleTTL, at most once per
// IdleTTL.
func (l *Limiter) pruneLocked(now time.Time) {
	ttl := l.cfg.IdleTTL
	if ttl <= 0 || now.Sub(l.lastPrune) < ttl {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.last) > ttl {
			delete(l.buckets, key)
		}
	}
	l.lastPrune = now
}

// Len returns the number of tracked buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
