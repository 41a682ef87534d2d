package ratelimit

import (
	"context"
	"sync"
	"time"
)

// idleEviction is how long a key may go unused before its bucket is dropped.
const idleEviction = 10 * time.Minute

// tokenBucket tracks the remaining allowance for one key.
type tokenBucket struct {
	remaining float64
	touchedAt time.Time
}

// take refills the bucket for the time elapsed since the previous request,
// then attempts to spend one token.
func (b *tokenBucket) take(now time.Time, rate, burst float64) bool {
	b.remaining += now.Sub(b.touchedAt).Seconds() * rate
	if b.remaining > burst {
		b.remaining = burst
	}
	b.touchedAt = now

	if b.remaining < 1 {
		return false
	}
	b.remaining--
	return true
}

// MemoryLimiter is an in-process Limiter with one token bucket per key.
// Buckets refill continuously at the configured rate up to a burst ceiling.
// A janitor goroutine drops idle buckets so the key map stays bounded;
// Close stops it.
type MemoryLimiter struct {
	rate  float64 // tokens added per second
	burst float64 // bucket capacity

	mu      sync.Mutex
	buckets map[string]*tokenBucket

	closeOnce sync.Once
	done      chan struct{}
}

// NewMemoryLimiter creates a limiter allowing a sustained rate of requests
// per second per key, with bursts of up to burst requests.
func NewMemoryLimiter(rate float64, burst int) *MemoryLimiter {
	m := &MemoryLimiter{
		rate:    rate,
		burst:   float64(burst),
		buckets: make(map[string]*tokenBucket),
		done:    make(chan struct{}),
	}
	go m.janitor()
	return m
}

// Allow spends one token from the key's bucket, reporting whether the
// request may proceed. A key's first request always passes.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	b, ok := m.buckets[key]
	if !ok {
		m.buckets[key] = &tokenBucket{remaining: m.burst - 1, touchedAt: now}
		return true, nil
	}
	return b.take(now, m.rate, m.burst), nil
}

// Close stops the janitor goroutine. Safe to call more than once.
func (m *MemoryLimiter) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return nil
}

func (m *MemoryLimiter) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

func (m *MemoryLimiter) evictIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-idleEviction)
	for key, b := range m.buckets {
		if b.touchedAt.Before(cutoff) {
			delete(m.buckets, key)
		}
	}
}
