// Package ratelimit enforces a minimum interval between actions of one key,
// typically a user on a chat platform.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter remembers when each key last passed. Entries older than the
// interval are swept once per interval, so idle users cost nothing.
type Limiter struct {
	interval time.Duration
	now      func() time.Time

	mu    sync.Mutex
	last  map[string]time.Time
	swept time.Time
}

// New returns a Limiter. A non-positive interval allows everything.
func New(interval time.Duration) *Limiter {
	return &Limiter{interval: interval, now: time.Now, last: make(map[string]time.Time)}
}

// Interval returns the configured minimum gap.
func (l *Limiter) Interval() time.Duration { return l.interval }

// Allow reports whether key may act now and, if so, records the attempt.
// Rejected attempts do not extend the wait.
func (l *Limiter) Allow(key string) bool {
	if l == nil || l.interval <= 0 || key == "" {
		return true
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.swept) >= l.interval {
		for k, t := range l.last {
			if now.Sub(t) >= l.interval {
				delete(l.last, k)
			}
		}
		l.swept = now
	}
	if t, ok := l.last[key]; ok && now.Sub(t) < l.interval {
		return false
	}
	l.last[key] = now
	return true
}

// Len returns the number of keys currently tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.last)
}
