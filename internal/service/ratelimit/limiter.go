package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

// Limiter is a keyed token bucket. The exchange budgets REST calls by
// request weight per minute, so callers consume a weight rather than a
// single token.
type Limiter struct {
	mu sync.Mutex
	m  map[string]*bucket
}

func New() *Limiter { return &Limiter{m: make(map[string]*bucket)} }

// Allow returns true if weight tokens can be consumed for key.
func (l *Limiter) Allow(key string, capacity, refillPerSec, weight float64) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: capacity, capacity: capacity, refillRate: refillPerSec, last: now}
		l.m[key] = b
	}
	// refill
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.refillRate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.last = now
	}
	if b.tokens >= weight {
		b.tokens -= weight
		return true
	}
	return false
}

// Wait blocks until weight tokens are available for key, polling at a
// coarse granularity. Used on the backfill path where spacing requests out
// beats failing them.
func (l *Limiter) Wait(key string, capacity, refillPerSec, weight float64) {
	for !l.Allow(key, capacity, refillPerSec, weight) {
		time.Sleep(50 * time.Millisecond)
	}
}
