package upload

import (
	"log/slog"
	"time"
)

// Quota enforces the Strava request budget: a fixed number of requests
// per fixed interval, where the budget also resets whenever the wall
// clock crosses an interval boundary (on the quarter hour for the default
// 15 minute interval).
type Quota struct {
	limit    int
	interval time.Duration
	logger   *slog.Logger

	remaining   int
	windowStart time.Time

	// Injected for tests.
	now    func() time.Time
	sleep  func(time.Duration)
	onWait func()
}

func NewQuota(limit int, interval time.Duration, logger *slog.Logger) *Quota {
	q := &Quota{
		limit:    limit,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		sleep:    time.Sleep,
	}
	q.reset()
	return q
}

// Acquire blocks until at least one unit of budget is available. Called
// once before each file; polls consume budget without acquiring, so the
// balance can dip below zero within a single upload and is settled here.
func (q *Quota) Acquire() {
	if q.remaining <= 0 {
		q.waitForReset()
		q.reset()
		return
	}
	if q.boundaryPassed() {
		q.reset()
	}
}

// Consume spends budget units.
func (q *Quota) Consume(n int) {
	q.remaining -= n
}

// Remaining returns the current budget balance.
func (q *Quota) Remaining() int {
	return q.remaining
}

func (q *Quota) reset() {
	q.remaining = q.limit
	q.windowStart = q.now()
}

// boundaryPassed reports whether the wall clock has crossed into a new
// quota interval since the window opened.
func (q *Quota) boundaryPassed() bool {
	return q.now().Truncate(q.interval) != q.windowStart.Truncate(q.interval)
}

func (q *Quota) waitForReset() {
	if q.onWait != nil {
		q.onWait()
	}
	q.logger.Info("Ran out of requests, waiting for the rate limit window to reset",
		"interval", q.interval)
	for q.now().Sub(q.windowStart) < q.interval && !q.boundaryPassed() {
		q.sleep(10 * time.Second)
	}
}
