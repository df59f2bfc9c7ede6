package capture

import (
	"testing"
	"time"

	"github.com/verte-zerg/tracepad/internal/clock"
	"github.com/verte-zerg/tracepad/internal/model"
)

func TestCountdownReachesZeroAndStops(t *testing.T) {
	sched := clock.NewVirtual(time.Unix(0, 0))
	var seen []time.Duration
	c := NewCountdown(sched, 50*time.Millisecond, func(d time.Duration) { seen = append(seen, d) })
	c.Start(sched.Now().Add(120 * time.Millisecond))

	sched.Advance(time.Second)
	want := []time.Duration{120 * time.Millisecond, 70 * time.Millisecond, 20 * time.Millisecond, 0}
	if len(seen) != len(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("tick %d: expected %v, got %v", i, want[i], seen[i])
		}
	}
	if c.Ticking() {
		t.Fatalf("countdown must stop ticking at zero")
	}
	if sched.Pending() != 0 {
		t.Fatalf("expected no pending ticks")
	}
	remaining, shown := c.Remaining()
	if remaining != 0 || !shown {
		t.Fatalf("expected zero remaining, got %v shown=%v", remaining, shown)
	}
}

func TestCountdownFinishOnlyAtDeadline(t *testing.T) {
	sched := clock.NewVirtual(time.Unix(0, 0))
	var seen []time.Duration
	c := NewCountdown(sched, 50*time.Millisecond, func(d time.Duration) { seen = append(seen, d) })
	// Scheduled before the countdown, so it runs ahead of the last tick.
	sched.AfterFunc(100*time.Millisecond, c.Finish)
	c.Start(sched.Now().Add(100 * time.Millisecond))

	sched.Advance(60 * time.Millisecond)
	c.Finish()
	if !c.Ticking() || seen[len(seen)-1] == 0 {
		t.Fatalf("finish before the deadline must be a no-op, seen %v", seen)
	}

	sched.Advance(40 * time.Millisecond)
	if c.Ticking() {
		t.Fatalf("finish at the deadline must stop ticking")
	}
	want := []time.Duration{100 * time.Millisecond, 50 * time.Millisecond, 0}
	if len(seen) != len(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("tick %d: expected %v, got %v", i, want[i], seen[i])
		}
	}
	if sched.Pending() != 0 {
		t.Fatalf("expected no pending ticks")
	}
}

func TestRemainingUntilRoundsUp(t *testing.T) {
	now := time.Unix(0, 0)
	if got := remainingUntil(now.Add(1500*time.Microsecond), now); got != 2*time.Millisecond {
		t.Fatalf("expected 2ms, got %v", got)
	}
	if got := remainingUntil(now.Add(-time.Second), now); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestTimerRestartCancelsPrevious(t *testing.T) {
	sched := clock.NewVirtual(time.Unix(0, 0))
	fired := 0
	timer := NewTimer(sched, func() { fired++ })
	timer.Restart(100 * time.Millisecond)
	sched.Advance(60 * time.Millisecond)
	timer.Restart(100 * time.Millisecond)
	sched.Advance(60 * time.Millisecond)
	if fired != 0 {
		t.Fatalf("restart did not cancel the previous fire")
	}
	sched.Advance(40 * time.Millisecond)
	if fired != 1 || timer.Active() {
		t.Fatalf("expected single fire, got %d (active=%v)", fired, timer.Active())
	}
}

func TestBufferAppendBeyondCapacity(t *testing.T) {
	b := NewBuffer(2)
	for i := 0; i < 2; i++ {
		if err := b.Append(model.TelemetrySample{X: i}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if err := b.Append(model.TelemetrySample{X: 9}); err != ErrBufferFull {
		t.Fatalf("expected ErrBufferFull, got %v", err)
	}
	samples := b.Samples()
	samples[0].X = 42
	if b.Samples()[0].X != 0 {
		t.Fatalf("Samples must return a copy")
	}
	b.Clear()
	if b.Len() != 0 || b.Full() {
		t.Fatalf("expected empty buffer after clear")
	}
}
