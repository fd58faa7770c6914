// Package ratelimit provides sliding-window rate limiters keyed by an
// opaque string (a license key digest or a client IP). Checking and
// recording an attempt are a single atomic step: a rejected attempt never
// consumes quota.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter bounds how many attempts a key may make inside a sliding window.
type Limiter interface {
	// Allow reports whether key may proceed. The attempt is recorded only
	// when allowed.
	Allow(ctx context.Context, key string) (bool, error)
}

// Memory is an in-process sliding-window limiter. One timestamp slice is
// kept per observed key; entries older than the window are evicted on each
// check. Long-idle keys are not evicted, which matches the accepted memory
// model for single-node deployments.
type Memory struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string][]time.Time
}

// NewMemory creates a limiter allowing limit attempts per window.
func NewMemory(limit int, window time.Duration) *Memory {
	return &Memory{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string][]time.Time),
	}
}

// Allow implements Limiter. It never returns an error.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-m.window)

	kept := m.entries[key][:0]
	for _, ts := range m.entries[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= m.limit {
		m.entries[key] = kept
		return false, nil
	}

	m.entries[key] = append(kept, now)
	return true, nil
}
