package capture

import (
	"time"

	"github.com/verte-zerg/tracepad/internal/clock"
)

// Timer is a restartable single-shot timer.
type Timer struct {
	sched  clock.Scheduler
	fn     func()
	cancel clock.Cancel
}

// NewTimer returns a stopped timer that calls fn when it fires.
func NewTimer(sched clock.Scheduler, fn func()) *Timer {
	return &Timer{sched: sched, fn: fn}
}

// Restart cancels any pending fire and arms the timer for d.
func (t *Timer) Restart(d time.Duration) {
	t.Stop()
	t.cancel = t.sched.AfterFunc(d, func() {
		t.cancel = nil
		t.fn()
	})
}

// RestartAt arms the timer to fire at deadline.
func (t *Timer) RestartAt(deadline time.Time) {
	t.Restart(deadline.Sub(t.sched.Now()))
}

// Stop cancels a pending fire.
func (t *Timer) Stop() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// Active reports whether a fire is pending.
func (t *Timer) Active() bool {
	return t.cancel != nil
}

// Countdown publishes the remaining time until a deadline at a fixed interval.
type Countdown struct {
	sched     clock.Scheduler
	interval  time.Duration
	deadline  time.Time
	remaining time.Duration
	running   bool
	ticking   bool
	cancel    clock.Cancel
	onTick    func(time.Duration)
}

// NewCountdown returns a stopped countdown ticking every interval.
func NewCountdown(sched clock.Scheduler, interval time.Duration, onTick func(time.Duration)) *Countdown {
	return &Countdown{sched: sched, interval: interval, onTick: onTick}
}

// Start begins counting down to deadline.
func (c *Countdown) Start(deadline time.Time) {
	c.Stop()
	c.deadline = deadline
	c.running = true
	c.ticking = true
	c.remaining = remainingUntil(deadline, c.sched.Now())
	c.publish()
	c.schedule()
}

// Stop cancels pending ticks and clears the countdown.
func (c *Countdown) Stop() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.running = false
	c.ticking = false
	c.remaining = 0
}

// Finish publishes the final zero and stops ticking once the deadline has
// passed. Before the deadline it does nothing.
func (c *Countdown) Finish() {
	if !c.ticking || remainingUntil(c.deadline, c.sched.Now()) > 0 {
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.ticking = false
	c.remaining = 0
	c.publish()
}

// Remaining returns the last published remaining time and whether a countdown is shown.
func (c *Countdown) Remaining() (time.Duration, bool) {
	return c.remaining, c.running
}

// Ticking reports whether further ticks are scheduled.
func (c *Countdown) Ticking() bool {
	return c.ticking
}

func (c *Countdown) schedule() {
	c.cancel = c.sched.AfterFunc(c.interval, c.tick)
}

func (c *Countdown) tick() {
	c.cancel = nil
	c.remaining = remainingUntil(c.deadline, c.sched.Now())
	c.publish()
	if c.remaining <= 0 {
		c.ticking = false
		return
	}
	c.schedule()
}

func (c *Countdown) publish() {
	if c.onTick != nil {
		c.onTick(c.remaining)
	}
}

// remainingUntil rounds up to whole milliseconds and never goes negative.
func remainingUntil(deadline, now time.Time) time.Duration {
	left := deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	ms := (left + time.Millisecond - 1) / time.Millisecond
	return ms * time.Millisecond
}
