// Package ratelimit gates outbound capability calls with a sliding request window.
package ratelimit

import (
	"sync"
	"time"
)

const (
	DefaultMaxRequests = 10
	DefaultWindow      = 60 * time.Second
)

// Limiter admits at most MaxRequests calls within any trailing Window.
type Limiter struct {
	maxRequests int
	window      time.Duration
	now         func() time.Time

	mu       sync.Mutex
	admitted []time.Time
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New constructs a limiter. Non-positive values fall back to defaults.
func New(maxRequests int, window time.Duration, opts ...Option) *Limiter {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Admit records and admits one request when the window has room.
func (l *Limiter) Admit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)
	if len(l.admitted) >= l.maxRequests {
		return false
	}
	l.admitted = append(l.admitted, now)
	return true
}

// Remaining reports how many requests would be admitted right now.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.now())
	return l.maxRequests - len(l.admitted)
}

// RetryAfter reports how long until the next request would be admitted.
func (l *Limiter) RetryAfter() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)
	if len(l.admitted) < l.maxRequests {
		return 0
	}
	return l.admitted[0].Add(l.window).Sub(now)
}

// prune drops timestamps that are no longer strictly inside the window.
func (l *Limiter) prune(now time.Time) {
	keep := 0
	for keep < len(l.admitted) && now.Sub(l.admitted[keep]) >= l.window {
		keep++
	}
	if keep > 0 {
		l.admitted = append(l.admitted[:0], l.admitted[keep:]...)
	}
}
