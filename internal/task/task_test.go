package task

import (
	"math"
	"testing"
	"time"

	"github.com/verte-zerg/tracepad/internal/clock"
	"github.com/verte-zerg/tracepad/internal/model"
	"github.com/verte-zerg/tracepad/internal/trajectory"
)

func TestNewBuildsEveryMode(t *testing.T) {
	for _, mode := range model.Modes {
		tk, err := New(mode, model.DefaultPatternConfig(), trajectory.NewSeededPicker(1))
		if err != nil {
			t.Fatalf("new %s: %v", mode, err)
		}
		if tk.Mode() != mode {
			t.Fatalf("expected mode %s, got %s", mode, tk.Mode())
		}
	}
	if _, err := New("spiral", model.DefaultPatternConfig(), nil); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestPatternGrabOnlyOnBall(t *testing.T) {
	p, err := NewPattern(model.DefaultPatternConfig(), trajectory.NewSeededPicker(1))
	if err != nil {
		t.Fatalf("new pattern: %v", err)
	}
	if p.Grab(model.Point{}) {
		t.Fatalf("grab must fail before resize")
	}
	p.Resize(300)
	if !p.Grab(model.Point{X: 160, Y: 150}) {
		t.Fatalf("expected grab on the ball")
	}
	if p.Grab(model.Point{X: 20, Y: 20}) {
		t.Fatalf("grab away from ball must fail")
	}
}

func TestAnimateStepsUntilSettled(t *testing.T) {
	sched := clock.NewVirtual(time.Unix(0, 0))
	p, err := NewPattern(model.DefaultPatternConfig(), trajectory.NewSeededPicker(1))
	if err != nil {
		t.Fatalf("new pattern: %v", err)
	}
	p.Resize(300)
	p.Begin(model.Point{})
	p.Drag(model.Point{X: 10, Y: 290})
	p.End()
	Animate(sched, p, FrameInterval)
	sched.Advance(3 * time.Second)
	if p.Animating() {
		t.Fatalf("animation still running")
	}
	if sched.Pending() != 0 {
		t.Fatalf("frames still scheduled after settle")
	}
	if p.Position() != p.Lattice().Center() {
		t.Fatalf("ball not at rest at center: %v", p.Position())
	}
}

func TestAnimateCancel(t *testing.T) {
	sched := clock.NewVirtual(time.Unix(0, 0))
	c := NewCircular(model.DefaultPatternConfig())
	c.Resize(300)
	c.Begin(model.Point{})
	c.Drag(model.Point{X: 300, Y: 150})
	c.End()
	cancel := Animate(sched, c, FrameInterval)
	sched.Advance(FrameInterval)
	cancel()
	angle := c.Angle()
	sched.Advance(time.Second)
	if c.Angle() != angle {
		t.Fatalf("cancelled animation kept stepping")
	}
}

func TestCircularTracksRotation(t *testing.T) {
	c := NewCircular(model.DefaultPatternConfig())
	c.Resize(300)
	knob := c.Knob()
	if math.Abs(knob.X-150) > 1e-9 || math.Abs(knob.Y-(150-105)) > 1e-9 {
		t.Fatalf("unexpected knob at rest: %v", knob)
	}
	if !c.Grab(knob) {
		t.Fatalf("expected grab on knob")
	}
	c.Begin(knob)
	// Quarter turns clockwise: right, bottom, left, top.
	for _, p := range []model.Point{{X: 300, Y: 150}, {X: 150, Y: 300}, {X: 0, Y: 150}, {X: 150, Y: 0}} {
		c.Drag(p)
	}
	if math.Abs(c.Turned()-360) > 1e-9 {
		t.Fatalf("expected a full turn, got %v", c.Turned())
	}
	c.End()
	if c.Animating() {
		t.Fatalf("knob already at rest must not animate")
	}
}

func TestDrawingKeepsBoundedHistory(t *testing.T) {
	d := NewDrawing(model.DefaultPatternConfig())
	d.Resize(300)
	if !d.Grab(model.Point{X: 10, Y: 10}) {
		t.Fatalf("drawing accepts presses anywhere")
	}
	for s := 0; s < 3; s++ {
		d.Begin(model.Point{})
		for i := 0; i < 2000; i++ {
			d.Drag(model.Point{X: float64(i % 300), Y: float64(s)})
		}
		d.End()
	}
	total := 0
	for _, stroke := range d.Strokes() {
		total += len(stroke)
	}
	if total > MaxStrokePoints {
		t.Fatalf("history exceeds bound: %d", total)
	}
	if len(d.Strokes()) == 0 {
		t.Fatalf("expected strokes")
	}
	d.Drag(model.Point{X: 1, Y: 1})
	if got := len(d.Strokes()[len(d.Strokes())-1]); got > MaxStrokePoints {
		t.Fatalf("drag after end must not extend: %d", got)
	}
}
