package crm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the limiter deterministically: sleeps advance the clock
// instead of blocking.
type fakeClock struct {
	current time.Time
	slept   []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.current }

func (c *fakeClock) sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.current = c.current.Add(d)
}

func (c *fakeClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestLimiter(perMinute int, clock *fakeClock) *rateLimiter {
	l := newRateLimiter(perMinute)
	l.now = clock.now
	l.sleep = clock.sleep
	return l
}

func TestRateLimiter_UnderQuotaOnlyMinInterval(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(10, clock)
	ctx := context.Background()

	require.NoError(t, limiter.wait(ctx))
	assert.Empty(t, clock.slept, "first request should not sleep")

	// Immediately following request only waits the fixed gap.
	require.NoError(t, limiter.wait(ctx))
	require.Len(t, clock.slept, 1)
	assert.Equal(t, minRequestInterval, clock.slept[0])
}

func TestRateLimiter_QuotaExhaustedSleepsUntilWindowFrees(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(3, clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.wait(ctx))
		clock.advance(time.Second)
	}
	clock.slept = nil

	// Fourth request inside the window must wait until the oldest stamp ages
	// out: the first request was 3s ago, so 57s remain.
	require.NoError(t, limiter.wait(ctx))
	require.Len(t, clock.slept, 1)
	assert.Equal(t, 57*time.Second, clock.slept[0])
}

func TestRateLimiter_OldStampsAgeOut(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(2, clock)
	ctx := context.Background()

	require.NoError(t, limiter.wait(ctx))
	clock.advance(time.Second)
	require.NoError(t, limiter.wait(ctx))

	// After the window passes, the quota is fresh again.
	clock.advance(61 * time.Second)
	clock.slept = nil
	require.NoError(t, limiter.wait(ctx))
	assert.Empty(t, clock.slept)
}

func TestRateLimiter_CancelledContext(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(1, clock)

	require.NoError(t, limiter.wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := limiter.wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimiter_DefaultsOnZeroQuota(t *testing.T) {
	limiter := newRateLimiter(0)
	assert.Equal(t, 60, limiter.perMinute)
}
