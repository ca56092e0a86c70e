package llm

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// rateWindow is the span the per-minute request budget is measured over.
const rateWindow = time.Minute

// RateLimiter gates request dispatch on two independent axes: at most
// maxConcurrent requests in flight at once, and at most ratePerMin
// admissions inside any rolling window. Admission never fails under load;
// callers are delayed until a slot and window room are both available.
//
// The concurrency slot is acquired first and held while waiting for window
// room, so a caller that has begun admission cannot be overtaken by an
// unbounded number of newcomers.
type RateLimiter struct {
	ratePerMin int
	sem        *semaphore.Weighted

	mu         sync.Mutex
	admissions []time.Time

	// window and now are swappable so tests do not sleep for a minute.
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter creates a limiter admitting ratePerMin requests per rolling
// minute with at most maxConcurrent in flight. Non-positive arguments are
// clamped to 1.
func NewRateLimiter(ratePerMin, maxConcurrent int) *RateLimiter {
	if ratePerMin < 1 {
		ratePerMin = 1
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &RateLimiter{
		ratePerMin: ratePerMin,
		sem:        semaphore.NewWeighted(int64(maxConcurrent)),
		admissions: make([]time.Time, 0, ratePerMin),
		window:     rateWindow,
		now:        time.Now,
	}
}

// Acquire blocks until the caller holds a concurrency slot and the rolling
// window has room, then records the admission. Every successful Acquire must
// be paired with exactly one Release. On context cancellation the slot is
// given back and the context error returned; the window record is only
// written for successful admissions.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)
		if len(l.admissions) < l.ratePerMin {
			l.admissions = append(l.admissions, now)
			l.mu.Unlock()
			return nil
		}
		// Window is full. Sleep until the oldest admission ages out, then
		// re-check: another waiter may have claimed the freed room first.
		wait := l.admissions[0].Add(l.window).Sub(now)
		l.mu.Unlock()

		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.sem.Release(1)
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Release returns the concurrency slot. It must be called exactly once per
// successful Acquire, regardless of how the guarded request ends.
func (l *RateLimiter) Release() {
	l.sem.Release(1)
}

// prune drops admission records older than the window. Caller holds l.mu.
func (l *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.admissions) && !l.admissions[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.admissions = l.admissions[:copy(l.admissions, l.admissions[i:])]
	}
}
