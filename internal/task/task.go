// Package task implements the interaction tasks that feed the capture pipeline.
package task

import (
	"fmt"
	"time"

	"github.com/verte-zerg/tracepad/internal/clock"
	"github.com/verte-zerg/tracepad/internal/model"
	"github.com/verte-zerg/tracepad/internal/trajectory"
)

// FrameInterval is the animation frame period.
const FrameInterval = 16 * time.Millisecond

// Task is one interaction task. All methods run on the event loop.
type Task interface {
	Mode() model.Mode
	// Resize reports the surface width; tasks bound it themselves.
	Resize(width float64)
	// Size returns the bounded surface side length.
	Size() float64
	// Grab reports whether a press at p starts a drag.
	Grab(p model.Point) bool
	Begin(p model.Point)
	Drag(p model.Point)
	End()
	// Step advances animations by dt and reports whether more frames are needed.
	Step(dt time.Duration) bool
	Animating() bool
}

// New builds the task for mode.
func New(mode model.Mode, cfg model.PatternConfig, picker *trajectory.Picker) (Task, error) {
	switch mode {
	case model.ModePattern:
		return NewPattern(cfg, picker)
	case model.ModeCircular:
		return NewCircular(cfg), nil
	case model.ModeDrawing:
		return NewDrawing(cfg), nil
	}
	return nil, fmt.Errorf("unknown mode %q", mode)
}

// Animate steps t on sched every interval until it settles. The returned
// Cancel stops further frames.
func Animate(sched clock.Scheduler, t Task, interval time.Duration) clock.Cancel {
	var cancel clock.Cancel
	stopped := false
	var frame func()
	frame = func() {
		if stopped {
			return
		}
		if t.Step(interval) {
			cancel = sched.AfterFunc(interval, frame)
		}
	}
	cancel = sched.AfterFunc(interval, frame)
	return func() {
		stopped = true
		if cancel != nil {
			cancel()
		}
	}
}
