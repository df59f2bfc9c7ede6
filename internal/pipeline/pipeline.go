// Package pipeline connects pointer input to the active task and the capture machine.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/verte-zerg/tracepad/internal/capture"
	"github.com/verte-zerg/tracepad/internal/clock"
	"github.com/verte-zerg/tracepad/internal/input"
	"github.com/verte-zerg/tracepad/internal/model"
	"github.com/verte-zerg/tracepad/internal/task"
	"github.com/verte-zerg/tracepad/internal/trajectory"
)

// ErrBusy is returned when a mode switch is attempted while a batch is in flight.
var ErrBusy = errors.New("batch transmission in progress")

// Options configure a Pipeline.
type Options struct {
	Scheduler    clock.Scheduler
	Logger       *slog.Logger
	Capture      model.CaptureConfig
	Pattern      model.PatternConfig
	Mode         model.Mode
	Picker       *trajectory.Picker
	NewSessionID func() string
	OnChange     func(capture.Snapshot)
	// Recorder receives every input event when set.
	Recorder *input.Writer
}

// Pipeline routes input events. All methods run on the event loop.
type Pipeline struct {
	sched    clock.Scheduler
	logger   *slog.Logger
	pattern  model.PatternConfig
	picker   *trajectory.Picker
	machine  *capture.Machine
	task     task.Task
	recorder *input.Writer
	start    time.Time

	width    float64
	dragging bool
	anim     clock.Cancel
}

// New builds a pipeline for opts.Mode, defaulting to the pattern task.
func New(opts Options) (*Pipeline, error) {
	if opts.Scheduler == nil {
		return nil, errors.New("pipeline: scheduler is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mode := opts.Mode
	if mode == "" {
		mode = model.ModePattern
	}
	picker := opts.Picker
	if picker == nil {
		picker = trajectory.NewPicker()
	}
	t, err := task.New(mode, opts.Pattern, picker)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern config: %w", err)
	}
	p := &Pipeline{
		sched:    opts.Scheduler,
		logger:   logger,
		pattern:  opts.Pattern,
		picker:   picker,
		task:     t,
		recorder: opts.Recorder,
		start:    opts.Scheduler.Now(),
	}
	// Any abandonment, including the idle timer firing mid-press, ends the drag.
	p.machine, err = capture.New(opts.Capture, capture.Options{
		Scheduler:    opts.Scheduler,
		Logger:       logger,
		NewSessionID: opts.NewSessionID,
		OnChange:     opts.OnChange,
		OnAbandon:    p.endDrag,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid capture config: %w", err)
	}
	return p, nil
}

// Mode returns the active interaction mode.
func (p *Pipeline) Mode() model.Mode { return p.task.Mode() }

// Task returns the active task for rendering.
func (p *Pipeline) Task() task.Task { return p.task }

// Machine returns the capture machine.
func (p *Pipeline) Machine() *capture.Machine { return p.machine }

// Snapshot returns the capture snapshot.
func (p *Pipeline) Snapshot() capture.Snapshot { return p.machine.Snapshot() }

// Dragging reports whether the task is following the pointer.
func (p *Pipeline) Dragging() bool { return p.dragging }

// Resize reports a new surface width.
func (p *Pipeline) Resize(width float64) {
	p.record(input.Event{Kind: input.KindResize, Width: width})
	p.width = width
	p.task.Resize(width)
}

// Press starts capturing and, when the press lands on the task handle, a drag.
func (p *Pipeline) Press(pt model.Point) bool {
	p.record(input.Event{Kind: input.KindPress, X: pt.X, Y: pt.Y})
	if !p.machine.Press(pt) {
		return false
	}
	p.grab(pt)
	return true
}

// Move feeds a pointer position to the task and the machine.
func (p *Pipeline) Move(pt model.Point) capture.MoveResult {
	p.record(input.Event{Kind: input.KindMove, X: pt.X, Y: pt.Y})
	if p.dragging {
		p.task.Drag(pt)
	}
	return p.machine.Move(pt)
}

// Release ends the press. A returned batch must be submitted and passed to Complete.
func (p *Pipeline) Release() (model.Batch, bool) {
	p.record(input.Event{Kind: input.KindRelease})
	p.endDrag()
	batch, ok := p.machine.Release()
	if ok {
		batch.Mode = p.task.Mode()
	}
	return batch, ok
}

// Toggle handles the alternate trigger. Starting a capture grabs the task the
// way a press does; stopping one abandons the session and ends the drag.
func (p *Pipeline) Toggle(pt model.Point) {
	p.record(input.Event{Kind: input.KindToggle, X: pt.X, Y: pt.Y})
	was := p.machine.State()
	p.machine.Toggle(pt)
	if was != model.StateCapturing && p.machine.State() == model.StateCapturing {
		p.grab(pt)
	}
}

// Reset abandons the current session.
func (p *Pipeline) Reset() {
	p.record(input.Event{Kind: input.KindReset})
	if p.machine.State() == model.StateSending {
		return
	}
	p.endDrag()
	p.machine.Reset()
}

// SwitchMode abandons the session and swaps the task. It fails while sending.
func (p *Pipeline) SwitchMode(mode model.Mode) error {
	if p.machine.State() == model.StateSending {
		return ErrBusy
	}
	t, err := task.New(mode, p.pattern, p.picker)
	if err != nil {
		return err
	}
	p.record(input.Event{Kind: input.KindMode, Mode: mode})
	p.endDrag()
	p.stopAnimation()
	p.machine.Reset()
	p.task = t
	if p.width > 0 {
		p.task.Resize(p.width)
	}
	p.logger.Debug("mode switched", slog.String("mode", string(mode)))
	return nil
}

// Complete reports the gateway outcome of batch and returns its history record.
func (p *Pipeline) Complete(batch model.Batch, res model.SubmitResult, err error) model.SessionOutcome {
	p.machine.Complete(res, err)
	out := model.SessionOutcome{
		SessionID:   batch.SessionID,
		Mode:        batch.Mode,
		StartedAt:   batch.StartedAt,
		SubmittedAt: p.sched.Now(),
		Samples:     len(batch.Samples),
		DurationMs:  batch.EndedAt.Sub(batch.StartedAt).Milliseconds(),
	}
	if err != nil {
		out.Error = err.Error()
	} else if res.HasMetric {
		metric := res.Metric
		out.Metric = &metric
	}
	return out
}

// Close stops animations and flushes the recorder.
func (p *Pipeline) Close() error {
	p.stopAnimation()
	if p.recorder != nil {
		return p.recorder.Flush()
	}
	return nil
}

func (p *Pipeline) grab(pt model.Point) {
	if !p.task.Grab(pt) {
		return
	}
	p.stopAnimation()
	p.task.Begin(pt)
	p.dragging = true
}

func (p *Pipeline) endDrag() {
	if !p.dragging {
		return
	}
	p.dragging = false
	p.task.End()
	if p.task.Animating() {
		p.stopAnimation()
		p.anim = task.Animate(p.sched, p.task, task.FrameInterval)
	}
}

func (p *Pipeline) stopAnimation() {
	if p.anim != nil {
		p.anim()
		p.anim = nil
	}
}

func (p *Pipeline) record(e input.Event) {
	if p.recorder == nil {
		return
	}
	e.T = p.sched.Now().Sub(p.start).Milliseconds()
	if err := p.recorder.Write(e); err != nil {
		p.logger.Warn("failed to record event", slog.Any("error", err))
	}
}
