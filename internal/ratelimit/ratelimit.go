// Package ratelimit paces outbound API calls. The Driftmail API rejects
// bursts, so every remote call passes through a single blocking gate that
// enforces a minimum interval between consecutive requests.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// Limiter enforces a minimum spacing between gated calls. One instance is
// shared per API-key session; concurrent callers serialize through the
// internal mutex so the spacing invariant holds regardless of parallelism.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time

	// now and sleep are swapped out in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a limiter from a requests-per-second budget. The minimum
// interval is ceil(1000/rate) milliseconds, computed once. A rate <= 0
// disables pacing.
func New(requestsPerSecond float64) *Limiter {
	var interval time.Duration
	if requestsPerSecond > 0 {
		interval = time.Duration(math.Ceil(1000/requestsPerSecond)) * time.Millisecond
	}
	return &Limiter{
		interval: interval,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Interval reports the enforced minimum spacing.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Wait blocks until the minimum interval since the previous gated call has
// elapsed, then records the new baseline. The first call never blocks.
// Cancellation abandons the wait and leaves the baseline untouched, so the
// next caller still pays spacing relative to the last completed gate.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.interval > 0 && !l.last.IsZero() {
		if wait := l.interval - l.now().Sub(l.last); wait > 0 {
			if err := l.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	l.last = l.now()
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
