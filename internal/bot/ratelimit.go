package bot

import (
	"sync"
	"time"
)

const (
	DefaultRateWindow = 60 * time.Second
	DefaultRateMax    = 5
)

type rateState struct {
	windowStart time.Time
	count       int
}

// RateLimiter keeps a fixed-window counter per identity. Counters for
// different identities are independent; calls for the same identity arrive
// already serialized by the dispatcher's per-conversation queues.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	now    func() time.Time
	states map[string]*rateState
}

func NewRateLimiter(window time.Duration, max int) *RateLimiter {
	if window <= 0 {
		window = DefaultRateWindow
	}
	if max <= 0 {
		max = DefaultRateMax
	}
	return &RateLimiter{
		window: window,
		max:    max,
		now:    time.Now,
		states: make(map[string]*rateState),
	}
}

// Allow counts one request for the identity and reports whether it is still
// inside the per-window budget.
func (l *RateLimiter) Allow(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	st, ok := l.states[identity]
	if !ok {
		st = &rateState{windowStart: now}
		l.states[identity] = st
	}
	if now.Sub(st.windowStart) > l.window {
		st.windowStart = now
		st.count = 0
	}
	st.count++
	return st.count <= l.max
}
