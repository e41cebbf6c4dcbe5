package moderation

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Default call caps per window.
const (
	FrequencyWindow  = 60 * time.Second
	DefaultCallLimit = 20
	NewUserCallLimit = 5
)

// FrequencyLimiter counts calls per connection inside a fixed window.
// All counters are cleared together when the window rolls over.
type FrequencyLimiter struct {
	mu          sync.Mutex
	clock       clockwork.Clock
	window      time.Duration
	windowStart time.Time
	counts      map[string]int
}

// NewFrequencyLimiter creates a limiter with the given window length.
func NewFrequencyLimiter(clock clockwork.Clock, window time.Duration) *FrequencyLimiter {
	return &FrequencyLimiter{
		clock:       clock,
		window:      window,
		windowStart: clock.Now(),
		counts:      make(map[string]int),
	}
}

// Allow records one call from connID and reports whether it fits under limit.
// A rejected call is not counted.
func (l *FrequencyLimiter) Allow(connID string, limit int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollLocked()

	if l.counts[connID] >= limit {
		return false
	}
	l.counts[connID]++
	return true
}

// Count returns the calls recorded for connID in the current window.
func (l *FrequencyLimiter) Count(connID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollLocked()
	return l.counts[connID]
}

// Forget drops the counter of a closed connection.
func (l *FrequencyLimiter) Forget(connID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.counts, connID)
}

func (l *FrequencyLimiter) rollLocked() {
	now := l.clock.Now()
	if now.Sub(l.windowStart) < l.window {
		return
	}

	l.counts = make(map[string]int)
	l.windowStart = now
}
