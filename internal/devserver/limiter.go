package devserver

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// voteLimiter is a token bucket per client.
type voteLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	rate      rate.Limit
	burst     int
	now       func() time.Time
	cleanupAt time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newVoteLimiter(perSecond float64, burst int, now func() time.Time) *voteLimiter {
	return &voteLimiter{
		limiters:  make(map[string]*limiterEntry),
		rate:      rate.Limit(perSecond),
		burst:     burst,
		now:       now,
		cleanupAt: now().Add(5 * time.Minute),
	}
}

// Allow reports whether client may vote now.
func (l *voteLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.After(l.cleanupAt) {
		l.cleanup(now)
		l.cleanupAt = now.Add(5 * time.Minute)
	}

	entry, ok := l.limiters[client]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[client] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// cleanup drops limiters idle for 10 minutes. Must be called with mu held.
func (l *voteLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-10 * time.Minute)
	for client, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, client)
		}
	}
}

func (l *voteLimiter) active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
