package upload

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock drives a Quota without real sleeping: sleep advances the
// clock instead.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) sleep(d time.Duration)   { c.t = c.t.Add(d) }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestQuota(limit int, interval time.Duration, start time.Time) (*Quota, *fakeClock, *int) {
	clock := &fakeClock{t: start}
	waits := 0
	q := &Quota{
		limit:    limit,
		interval: interval,
		logger:   testLogger(),
		now:      clock.now,
		sleep:    clock.sleep,
		onWait:   func() { waits++ },
	}
	q.reset()
	return q, clock, &waits
}

func TestQuota_FiveFilesOnABudgetOfTwoWaitTwice(t *testing.T) {
	start := time.Date(2019, 7, 9, 10, 2, 0, 0, time.UTC)
	q, _, waits := newTestQuota(2, 15*time.Minute, start)

	for i := 0; i < 5; i++ {
		q.Acquire()
		q.Consume(1)
	}

	if *waits != 2 {
		t.Errorf("expected exactly 2 waits, got %d", *waits)
	}
}

func TestQuota_NoWaitWithinBudget(t *testing.T) {
	q, _, waits := newTestQuota(3, 15*time.Minute, time.Date(2019, 7, 9, 10, 2, 0, 0, time.UTC))

	for i := 0; i < 3; i++ {
		q.Acquire()
		q.Consume(1)
	}

	if *waits != 0 {
		t.Errorf("expected no waits, got %d", *waits)
	}
	if q.Remaining() != 0 {
		t.Errorf("expected budget exhausted, got %d", q.Remaining())
	}
}

func TestQuota_WaitEndsAtIntervalBoundary(t *testing.T) {
	// The window opens at 10:14; the clock crosses the quarter-hour
	// boundary after one minute, well before a full interval elapses.
	start := time.Date(2019, 7, 9, 10, 14, 0, 0, time.UTC)
	q, clock, waits := newTestQuota(1, 15*time.Minute, start)

	q.Acquire()
	q.Consume(1)
	q.Acquire()

	if *waits != 1 {
		t.Fatalf("expected 1 wait, got %d", *waits)
	}
	if clock.t.After(start.Add(2 * time.Minute)) {
		t.Errorf("wait overshot the boundary, clock at %s", clock.t)
	}
	if q.Remaining() != 1 {
		t.Errorf("expected a fresh budget after the wait, got %d", q.Remaining())
	}
}

func TestQuota_BoundaryCrossingResetsWithoutWait(t *testing.T) {
	start := time.Date(2019, 7, 9, 10, 14, 0, 0, time.UTC)
	q, clock, waits := newTestQuota(2, 15*time.Minute, start)

	q.Acquire()
	q.Consume(1)

	// Idle across the quarter-hour boundary; the next acquire should
	// see a full budget again with no waiting.
	clock.advance(2 * time.Minute)
	q.Acquire()

	if *waits != 0 {
		t.Errorf("expected no waits, got %d", *waits)
	}
	if q.Remaining() != 2 {
		t.Errorf("expected reset budget, got %d", q.Remaining())
	}
}

func TestQuota_PollOverdraftSettledOnAcquire(t *testing.T) {
	start := time.Date(2019, 7, 9, 10, 2, 0, 0, time.UTC)
	q, _, waits := newTestQuota(2, 15*time.Minute, start)

	// One submit plus three polls drives the balance below zero.
	q.Acquire()
	q.Consume(1)
	q.Consume(3)

	if q.Remaining() != -2 {
		t.Fatalf("expected balance -2, got %d", q.Remaining())
	}

	q.Acquire()
	if *waits != 1 {
		t.Errorf("expected the overdraft to force a wait, got %d", *waits)
	}
	if q.Remaining() != 2 {
		t.Errorf("expected a fresh budget, got %d", q.Remaining())
	}
}
