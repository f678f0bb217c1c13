// Package ratelimit implements an in-memory token-bucket limiter keyed by
// client address.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// entry tracks the token-bucket state for a single key.
type entry struct {
	tokens    float64
	lastCheck time.Time
}

// Limiter refills each key's bucket at rate tokens per second up to burst.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	rate    float64
	burst   float64
	idleTTL time.Duration
	now     func() time.Time
}

// New creates a limiter allowing rate requests per second per key with bursts
// of up to burst. Keys idle for longer than idleTTL are forgotten by Cleanup.
func New(rate float64, burst int, idleTTL time.Duration) *Limiter {
	if burst < 1 {
		burst = 1
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &Limiter{
		entries: make(map[string]*entry),
		rate:    rate,
		burst:   float64(burst),
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Allow consumes one token for key and reports whether one was available.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, exists := l.entries[key]
	if !exists {
		l.entries[key] = &entry{
			tokens:    l.burst - 1,
			lastCheck: now,
		}
		return true
	}

	elapsed := now.Sub(e.lastCheck)
	e.lastCheck = now

	e.tokens += elapsed.Seconds() * l.rate
	if e.tokens > l.burst {
		e.tokens = l.burst
	}

	if e.tokens < 1 {
		return false
	}

	e.tokens--
	return true
}

// Reset clears the rate-limit state for a specific key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Sweep removes keys idle for longer than the idle TTL.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.idleTTL)
	removed := 0
	for key, e := range l.entries {
		if e.lastCheck.Before(cutoff) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Cleanup sweeps idle keys every interval until ctx is cancelled.
func (l *Limiter) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-ctx.Done():
			return
		}
	}
}
