package ratelimit

import (
	"sync"
	"time"
)

// Store tracks hits per key within a trailing window. Every Touch counts as
// a hit, including check-only calls.
type Store interface {
	// Touch records a hit for key now, drops hits older than the window,
	// and returns the hit count inside the window including this one.
	Touch(key string, window time.Duration) int
}

// Memory is the in-process Store. State lives only for the process lifetime
// and is not shared across instances, so with N instances the effective
// limit is N times the configured one. Acceptable for low-stakes abuse
// prevention; swap the Store for a shared cache if that ever changes.
type Memory struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		hits: make(map[string][]time.Time),
		now:  time.Now,
	}
}

func (m *Memory) Touch(key string, window time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-window)

	recent := m.hits[key][:0:0]
	for _, t := range m.hits[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	recent = append(recent, now)
	m.hits[key] = recent
	return len(recent)
}

// Cleanup drops keys whose every hit is older than the given window. Expiry
// is otherwise lazy, so long-idle keys linger until swept.
func (m *Memory) Cleanup(window time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-window)
	for key, hits := range m.hits {
		live := false
		for _, t := range hits {
			if t.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(m.hits, key)
		}
	}
}

// Result is the outcome of one limiter check.
type Result struct {
	Limited bool
	Count   int
}

// Limited touches the key and reports whether the window now holds more
// than max hits.
func Limited(s Store, key string, window time.Duration, max int) Result {
	c := s.Touch(key, window)
	return Result{Limited: c > max, Count: c}
}
