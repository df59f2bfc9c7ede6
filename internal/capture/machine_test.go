package capture

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/verte-zerg/tracepad/internal/clock"
	"github.com/verte-zerg/tracepad/internal/model"
)

func newTestMachine(t *testing.T, onChange func(Snapshot)) (*Machine, *clock.Virtual) {
	t.Helper()
	sched := clock.NewVirtual(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	ids := 0
	m, err := New(model.DefaultCaptureConfig(), Options{
		Scheduler: sched,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		NewSessionID: func() string {
			ids++
			return fmt.Sprintf("session-%d", ids)
		},
		OnChange: onChange,
	})
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	return m, sched
}

// drag records n samples moving 10 units right every 10ms.
func drag(t *testing.T, m *Machine, sched *clock.Virtual, from model.Point, n int) model.Point {
	t.Helper()
	p := from
	for i := 0; i < n; i++ {
		sched.Advance(10 * time.Millisecond)
		p.X += 10
		if res := m.Move(p); res != MoveRecorded {
			t.Fatalf("move %d: expected recorded, got %v", i, res)
		}
	}
	return p
}

func TestCooldownCountdownThenAbandon(t *testing.T) {
	var countdowns []time.Duration
	m, sched := newTestMachine(t, func(s Snapshot) {
		if s.State == model.StateCooldown && s.Counting {
			countdowns = append(countdowns, s.Countdown)
		}
	})
	m.Press(model.Point{})
	drag(t, m, sched, model.Point{}, 50)
	if _, ok := m.Release(); ok {
		t.Fatalf("expected no batch for 50 samples")
	}
	if m.State() != model.StateCooldown {
		t.Fatalf("expected cooldown, got %v", m.State())
	}
	snap := m.Snapshot()
	if !snap.Counting || snap.Countdown != 2000*time.Millisecond {
		t.Fatalf("expected countdown to start at 2000ms, got %v (counting=%v)", snap.Countdown, snap.Counting)
	}

	sched.Advance(1999 * time.Millisecond)
	if m.State() != model.StateCooldown || m.Len() != 50 {
		t.Fatalf("session cleared early: state=%v len=%d", m.State(), m.Len())
	}
	sched.Advance(time.Millisecond)
	if m.State() != model.StateIdle {
		t.Fatalf("expected idle after timeout, got %v", m.State())
	}
	if m.Len() != 0 {
		t.Fatalf("expected empty buffer, got %d", m.Len())
	}
	if m.Snapshot().Counting {
		t.Fatalf("expected countdown cleared")
	}
	if len(countdowns) < 30 {
		t.Fatalf("expected countdown ticks, got %d", len(countdowns))
	}
	if last := countdowns[len(countdowns)-1]; last != 0 {
		t.Fatalf("expected countdown to end at 0, last published %v", last)
	}
	for i := 1; i < len(countdowns); i++ {
		if countdowns[i] > countdowns[i-1] {
			t.Fatalf("countdown increased at %d: %v -> %v", i, countdowns[i-1], countdowns[i])
		}
		if countdowns[i] < 0 {
			t.Fatalf("countdown went negative: %v", countdowns[i])
		}
	}
	if got := m.Snapshot().Counters.Abandoned; got != 1 {
		t.Fatalf("expected 1 abandoned session, got %d", got)
	}
}

func TestFullBatchIsSubmittedOnce(t *testing.T) {
	m, sched := newTestMachine(t, nil)
	m.Press(model.Point{})
	p := drag(t, m, sched, model.Point{}, 120)

	sched.Advance(10 * time.Millisecond)
	if res := m.Move(model.Point{X: p.X + 10}); res != MoveDropped {
		t.Fatalf("expected append past capacity to be dropped, got %v", res)
	}
	if m.Len() != 120 {
		t.Fatalf("expected 120 samples, got %d", m.Len())
	}

	batch, ok := m.Release()
	if !ok {
		t.Fatalf("expected batch on release")
	}
	if len(batch.Samples) != 120 {
		t.Fatalf("expected 120 samples in batch, got %d", len(batch.Samples))
	}
	if batch.SessionID != "session-1" {
		t.Fatalf("unexpected session id %q", batch.SessionID)
	}
	if m.State() != model.StateSending {
		t.Fatalf("expected sending, got %v", m.State())
	}
	if _, again := m.Release(); again {
		t.Fatalf("second release must not produce a batch")
	}
	if m.Press(model.Point{}) {
		t.Fatalf("press must be ignored while sending")
	}
	if res := m.Move(model.Point{X: 500}); res != MoveIgnored {
		t.Fatalf("move must be ignored while sending, got %v", res)
	}

	m.Complete(model.SubmitResult{Metric: 0.42, HasMetric: true}, nil)
	if m.Len() != 0 {
		t.Fatalf("expected buffer cleared after completion, got %d", m.Len())
	}
	snap := m.Snapshot()
	if !snap.Settling || snap.State != model.StateSending {
		t.Fatalf("expected settle window, got %+v", snap)
	}
	if m.Press(model.Point{}) {
		t.Fatalf("press must be ignored during settle window")
	}
	sched.Advance(799 * time.Millisecond)
	if m.State() != model.StateSending {
		t.Fatalf("settle window ended early")
	}
	sched.Advance(time.Millisecond)
	if m.State() != model.StateIdle {
		t.Fatalf("expected idle after settle, got %v", m.State())
	}
	snap = m.Snapshot()
	if !snap.HasMetric || snap.Metric != 0.42 {
		t.Fatalf("expected metric 0.42, got %+v", snap)
	}
	if snap.Counters.Submitted != 1 {
		t.Fatalf("expected 1 submitted, got %d", snap.Counters.Submitted)
	}
}

func TestTransmissionFailureStillClears(t *testing.T) {
	m, sched := newTestMachine(t, nil)
	m.Press(model.Point{})
	drag(t, m, sched, model.Point{}, 120)
	if _, ok := m.Release(); !ok {
		t.Fatalf("expected batch")
	}
	m.Complete(model.SubmitResult{}, errors.New("boom"))
	if m.Len() != 0 {
		t.Fatalf("expected buffer cleared on failure")
	}
	sched.Advance(800 * time.Millisecond)
	snap := m.Snapshot()
	if snap.State != model.StateIdle {
		t.Fatalf("expected idle, got %v", snap.State)
	}
	if snap.Counters.Failed != 1 || snap.LastError != "boom" {
		t.Fatalf("unexpected failure bookkeeping: %+v", snap)
	}
	if snap.HasMetric {
		t.Fatalf("failure must not set a metric")
	}
}

func TestPressDuringCooldownResumesSession(t *testing.T) {
	m, sched := newTestMachine(t, nil)
	m.Press(model.Point{})
	p := drag(t, m, sched, model.Point{}, 30)
	m.Release()
	sched.Advance(time.Second)

	if !m.Press(p) {
		t.Fatalf("press in cooldown must be accepted")
	}
	if m.State() != model.StateCapturing {
		t.Fatalf("expected capturing, got %v", m.State())
	}
	if m.Len() != 30 {
		t.Fatalf("expected buffer preserved, got %d", m.Len())
	}
	if m.Snapshot().Counting {
		t.Fatalf("countdown must be cancelled")
	}
	sched.Advance(1500 * time.Millisecond)
	if m.State() != model.StateCapturing || m.Len() != 30 {
		t.Fatalf("stale abandonment cleared resumed session: state=%v len=%d", m.State(), m.Len())
	}
	drag(t, m, sched, p, 5)
	if m.Snapshot().SessionID != "session-1" {
		t.Fatalf("resumed session must keep its id")
	}
}

func TestIdleWhileCapturingAbandons(t *testing.T) {
	m, sched := newTestMachine(t, nil)
	m.Press(model.Point{})
	drag(t, m, sched, model.Point{}, 10)
	sched.Advance(2 * time.Second)
	if m.State() != model.StateIdle || m.Len() != 0 {
		t.Fatalf("expected abandonment, got state=%v len=%d", m.State(), m.Len())
	}
}

func TestJitterDoesNotResetIdleTimer(t *testing.T) {
	m, sched := newTestMachine(t, nil)
	m.Press(model.Point{})
	p := drag(t, m, sched, model.Point{}, 3)
	for i := 0; i < 19; i++ {
		sched.Advance(100 * time.Millisecond)
		if res := m.Move(model.Point{X: p.X + 1, Y: p.Y + 1}); res != MoveRejected {
			t.Fatalf("expected jitter rejected, got %v", res)
		}
	}
	sched.Advance(100 * time.Millisecond)
	if m.State() != model.StateIdle {
		t.Fatalf("jitter kept the session alive")
	}
}

func TestReleaseWithEmptyBufferGoesIdle(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	m.Press(model.Point{})
	if _, ok := m.Release(); ok {
		t.Fatalf("unexpected batch")
	}
	if m.State() != model.StateIdle {
		t.Fatalf("expected idle, got %v", m.State())
	}
	if m.Snapshot().Counting {
		t.Fatalf("no countdown expected for empty release")
	}
}

func TestReleaseWithoutPressIsNoop(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	if _, ok := m.Release(); ok || m.State() != model.StateIdle {
		t.Fatalf("release without press must be a no-op")
	}
}

func TestToggleStartsAndAbandons(t *testing.T) {
	m, sched := newTestMachine(t, nil)
	m.Toggle(model.Point{})
	if m.State() != model.StateCapturing {
		t.Fatalf("expected toggle to start capturing")
	}
	drag(t, m, sched, model.Point{}, 5)
	m.Toggle(model.Point{})
	if m.State() != model.StateIdle || m.Len() != 0 {
		t.Fatalf("expected toggle to abandon, got state=%v len=%d", m.State(), m.Len())
	}
}

func TestResetCancelsCooldown(t *testing.T) {
	m, sched := newTestMachine(t, nil)
	m.Press(model.Point{})
	drag(t, m, sched, model.Point{}, 5)
	m.Release()
	m.Reset()
	if m.State() != model.StateIdle || m.Len() != 0 {
		t.Fatalf("expected reset to clear session")
	}
	if sched.Pending() != 0 {
		t.Fatalf("expected no pending timers after reset, got %d", sched.Pending())
	}
}

func TestResetIgnoredWhileSending(t *testing.T) {
	m, sched := newTestMachine(t, nil)
	m.Press(model.Point{})
	drag(t, m, sched, model.Point{}, 120)
	m.Release()
	m.Reset()
	if m.State() != model.StateSending {
		t.Fatalf("reset must not interrupt transmission, got %v", m.State())
	}
}

func TestDuplicateTimestampNotRecorded(t *testing.T) {
	m, sched := newTestMachine(t, nil)
	m.Press(model.Point{})
	sched.Advance(10 * time.Millisecond)
	if res := m.Move(model.Point{X: 10}); res != MoveRecorded {
		t.Fatalf("expected recorded, got %v", res)
	}
	if res := m.Move(model.Point{X: 20}); res != MoveAccepted {
		t.Fatalf("expected accepted without record, got %v", res)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 sample, got %d", m.Len())
	}
	sched.Advance(5 * time.Millisecond)
	if res := m.Move(model.Point{X: 30}); res != MoveRecorded {
		t.Fatalf("expected recorded, got %v", res)
	}
	samples := m.Samples()
	if samples[1].DeltaTime != 0.005 {
		t.Fatalf("expected delta measured from last recorded sample, got %v", samples[1].DeltaTime)
	}
	if samples[1].X != 30 {
		t.Fatalf("unexpected x %d", samples[1].X)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := model.DefaultCaptureConfig()
	cfg.MaxBatchSize = 0
	if _, err := New(cfg, Options{Scheduler: clock.NewVirtual(time.Time{})}); err == nil {
		t.Fatalf("expected config error")
	}
	if _, err := New(model.DefaultCaptureConfig(), Options{}); err == nil {
		t.Fatalf("expected scheduler error")
	}
}

func TestResetDuringCooldownDoesNotJumpToZero(t *testing.T) {
	var countdowns []time.Duration
	m, sched := newTestMachine(t, func(s Snapshot) {
		if s.State == model.StateCooldown && s.Counting {
			countdowns = append(countdowns, s.Countdown)
		}
	})
	m.Press(model.Point{})
	drag(t, m, sched, model.Point{}, 10)
	m.Release()
	sched.Advance(time.Second)
	m.Reset()
	if m.State() != model.StateIdle {
		t.Fatalf("expected idle after reset, got %v", m.State())
	}
	for _, d := range countdowns {
		if d == 0 {
			t.Fatalf("reset before the deadline must not publish 0: %v", countdowns)
		}
	}
}

func TestOnAbandonFiresForEveryTrigger(t *testing.T) {
	sched := clock.NewVirtual(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	abandoned := 0
	m, err := New(model.DefaultCaptureConfig(), Options{
		Scheduler: sched,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		OnAbandon: func() { abandoned++ },
	})
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}

	m.Press(model.Point{})
	drag(t, m, sched, model.Point{}, 3)
	sched.Advance(3 * time.Second)
	if m.State() != model.StateIdle || abandoned != 1 {
		t.Fatalf("idle timeout: state=%v abandoned=%d", m.State(), abandoned)
	}

	m.Press(model.Point{})
	m.Toggle(model.Point{})
	if abandoned != 2 {
		t.Fatalf("toggle: expected 2 abandons, got %d", abandoned)
	}

	m.Press(model.Point{})
	m.Reset()
	if abandoned != 3 {
		t.Fatalf("reset: expected 3 abandons, got %d", abandoned)
	}
}
