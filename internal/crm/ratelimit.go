package crm

import (
	"context"
	"sync"
	"time"
)

// minRequestInterval is the fixed delay enforced between consecutive requests
// to the same system, on top of the per-minute quota.
const minRequestInterval = 100 * time.Millisecond

// rateLimiter keeps a sliding one-minute window of request timestamps bounded
// by a per-system quota. It is per client instance: concurrent workers each
// hold their own window, so the quota is not coordinated across processes.
type rateLimiter struct {
	mu          sync.Mutex
	perMinute   int
	minInterval time.Duration
	stamps      []time.Time
	lastRequest time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

func newRateLimiter(perMinute int) *rateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	return &rateLimiter{
		perMinute:   perMinute,
		minInterval: minRequestInterval,
		now:         time.Now,
		sleep:       time.Sleep,
	}
}

// wait blocks until issuing a request would stay inside the quota, then
// records the request timestamp.
func (l *rateLimiter) wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	// Drop timestamps that have aged out of the window.
	cutoff := now.Add(-time.Minute)
	kept := l.stamps[:0]
	for _, ts := range l.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.stamps = kept

	var delay time.Duration
	if len(l.stamps) >= l.perMinute {
		// Sleep until the oldest timestamp ages out of the window.
		delay = l.stamps[0].Add(time.Minute).Sub(now)
	}
	if !l.lastRequest.IsZero() {
		if gap := l.minInterval - now.Sub(l.lastRequest); gap > delay {
			delay = gap
		}
	}

	if delay > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.sleep(delay)
		now = l.now()
	}

	l.stamps = append(l.stamps, now)
	l.lastRequest = now
	return nil
}
