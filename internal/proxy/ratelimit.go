package proxy

import (
	"sync"
	"time"
)

// RateLimiter enforces two budgets per caller key: a rolling window
// and a calendar-day total. Keys combine the client id and the remote
// IP, so neither a shared IP nor a forged client id alone can exhaust
// someone else's budget.
type RateLimiter struct {
	window      time.Duration
	windowLimit int
	dailyLimit  int
	now         func() time.Time

	mu     sync.Mutex
	hits   map[string][]time.Time
	daily  map[string]*dayCount
	sweeps int
}

type dayCount struct {
	day   string
	count int
}

// NewRateLimiter creates a limiter allowing windowLimit requests per
// window and dailyLimit requests per calendar day (UTC).
func NewRateLimiter(window time.Duration, windowLimit, dailyLimit int) *RateLimiter {
	return &RateLimiter{
		window:      window,
		windowLimit: windowLimit,
		dailyLimit:  dailyLimit,
		now:         time.Now,
		hits:        make(map[string][]time.Time),
		daily:       make(map[string]*dayCount),
	}
}

// Allow records one request for key and reports whether it is within
// budget. When the request is rejected, retryAfter is how long the
// caller should wait before trying again.
func (l *RateLimiter) Allow(key string) (ok bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	day := now.UTC().Format("2006-01-02")

	dc := l.daily[key]
	if dc == nil || dc.day != day {
		dc = &dayCount{day: day}
		l.daily[key] = dc
	}
	if dc.count >= l.dailyLimit {
		midnight := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
		return false, midnight.Sub(now.UTC())
	}

	fresh := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if now.Sub(t) < l.window {
			fresh = append(fresh, t)
		}
	}
	l.hits[key] = fresh
	if len(fresh) >= l.windowLimit {
		return false, l.window - now.Sub(fresh[0])
	}

	l.hits[key] = append(fresh, now)
	dc.count++

	l.sweeps++
	if l.sweeps%1024 == 0 {
		l.sweepLocked(now, day)
	}
	return true, 0
}

// sweepLocked drops idle keys so the maps do not grow without bound.
func (l *RateLimiter) sweepLocked(now time.Time, day string) {
	for k, ts := range l.hits {
		if len(ts) == 0 || now.Sub(ts[len(ts)-1]) >= l.window {
			delete(l.hits, k)
		}
	}
	for k, dc := range l.daily {
		if dc.day != day {
			delete(l.daily, k)
		}
	}
}
