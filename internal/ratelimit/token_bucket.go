package ratelimit

import (
	"errors"
	"math"
	"sync"
	"time"
)

// TokenBucket is an in-process per-key token bucket. Buckets refill
// continuously at rate tokens per second up to burst, and idle buckets
// are evicted so the key space stays bounded.
type TokenBucket struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	tokens float64
	ts     time.Time
}

type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

func NewTokenBucket() *TokenBucket {
	return &TokenBucket{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow consumes one token from key's bucket.
func (t *TokenBucket) Allow(key string, rate float64, burst int) (*Result, error) {
	if key == "" {
		return &Result{}, errors.New("rate limiter key is empty")
	}
	if rate <= 0 {
		return &Result{}, errors.New("rate limiter rate must be positive")
	}
	if burst <= 0 {
		return &Result{}, errors.New("rate limiter burst must be positive")
	}

	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(burst), ts: now}
		t.buckets[key] = b
	} else {
		delta := now.Sub(b.ts)
		if delta < 0 {
			delta = 0
		}
		b.tokens = math.Min(float64(burst), b.tokens+delta.Seconds()*rate)
		b.ts = now
	}

	if len(t.buckets) > maxBuckets {
		t.evictIdle(now, rate, burst)
	}

	if b.tokens < 1 {
		return &Result{
			Remaining:  0,
			RetryAfter: time.Duration((1 - b.tokens) / rate * float64(time.Second)),
		}, nil
	}

	b.tokens--
	return &Result{
		Allowed:   true,
		Remaining: int(b.tokens),
	}, nil
}

const maxBuckets = 100_000

// evictIdle drops buckets that refilled back to full; they carry no
// state worth keeping.
func (t *TokenBucket) evictIdle(now time.Time, rate float64, burst int) {
	idleAfter := time.Duration(float64(burst) / rate * float64(time.Second))
	for key, b := range t.buckets {
		if now.Sub(b.ts) > idleAfter {
			delete(t.buckets, key)
		}
	}
}
