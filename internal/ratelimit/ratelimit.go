// Package ratelimit enforces a minimum interval between outbound upstream requests.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter grants at most one request slot per interval. Refused callers are
// expected to degrade (serve stale data) rather than wait.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

type Option func(*Limiter)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(interval time.Duration, opts ...Option) *Limiter {
	l := &Limiter{interval: interval, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Claim records a request at the current instant if the interval since the
// last claimed request has elapsed, and reports whether it did.
func (l *Limiter) Claim() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := l.now()
	if !l.last.IsZero() && n.Sub(l.last) < l.interval {
		return false
	}
	l.last = n
	return true
}

// Wait reports how long until the next Claim would succeed (zero if it would now).
func (l *Limiter) Wait() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last.IsZero() {
		return 0
	}
	d := l.interval - l.now().Sub(l.last)
	if d < 0 {
		return 0
	}
	return d
}

func (l *Limiter) Interval() time.Duration { return l.interval }
