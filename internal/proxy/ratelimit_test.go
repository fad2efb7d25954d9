package proxy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterWindowLimit(t *testing.T) {
	l := NewRateLimiter(time.Minute, 3, 100)

	for i := 0; i < 3; i++ {
		ok, _ := l.Allow("k")
		require.True(t, ok, "request %d should pass", i+1)
	}
	ok, retryAfter := l.Allow("k")
	assert.False(t, ok)
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, time.Minute)
}

func TestRateLimiterWindowSlides(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(time.Minute, 2, 100)
	l.now = func() time.Time { return now }

	ok, _ := l.Allow("k")
	require.True(t, ok)
	ok, _ = l.Allow("k")
	require.True(t, ok)
	ok, _ = l.Allow("k")
	require.False(t, ok)

	// Once the first hit ages out, capacity frees up.
	now = now.Add(61 * time.Second)
	ok, _ = l.Allow("k")
	assert.True(t, ok)
}

func TestRateLimiterDailyLimit(t *testing.T) {
	now := time.Date(2026, 8, 26, 23, 50, 0, 0, time.UTC)
	l := NewRateLimiter(time.Second, 1000, 2)
	l.now = func() time.Time { return now }

	ok, _ := l.Allow("k")
	require.True(t, ok)
	now = now.Add(2 * time.Second)
	ok, _ = l.Allow("k")
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	ok, retryAfter := l.Allow("k")
	require.False(t, ok)
	// Ten minutes to midnight, minus the few seconds that passed.
	assert.InDelta(t, (10 * time.Minute).Seconds(), retryAfter.Seconds(), 10)

	// A new day resets the counter.
	now = now.Add(15 * time.Minute)
	ok, _ = l.Allow("k")
	assert.True(t, ok)
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	l := NewRateLimiter(time.Minute, 1, 100)
	ok, _ := l.Allow("alice|1.2.3.4")
	require.True(t, ok)
	ok, _ = l.Allow("alice|1.2.3.4")
	require.False(t, ok)

	ok, _ = l.Allow("bob|1.2.3.4")
	assert.True(t, ok, "a different client id on the same IP has its own budget")
	ok, _ = l.Allow("alice|5.6.7.8")
	assert.True(t, ok, "the same client id on a different IP has its own budget")
}
