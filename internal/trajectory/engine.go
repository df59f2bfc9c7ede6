package trajectory

import (
	"fmt"
	"time"

	"github.com/verte-zerg/tracepad/internal/model"
)

// Arrival describes a scored arrival at the active target.
type Arrival struct {
	Score int
	From  int
	To    int
}

// Options configure an Engine.
type Options struct {
	Picker   *Picker
	OnArrive func(Arrival)
}

// Engine owns the pattern task state. It never touches capture state.
type Engine struct {
	cfg      model.PatternConfig
	spring   Spring
	picker   *Picker
	onArrive func(Arrival)

	lattice  Lattice
	pos      *Position
	target   int
	score    int
	dragging bool
	arriving bool
	anim     *Animation
}

// NewEngine returns an engine with an empty surface; call Resize before use.
func NewEngine(cfg model.PatternConfig, opts Options) (*Engine, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	picker := opts.Picker
	if picker == nil {
		picker = NewPicker()
	}
	e := &Engine{
		cfg:      cfg,
		spring:   Spring{Stiffness: cfg.Stiffness, Damping: cfg.Damping, Mass: cfg.Mass},
		picker:   picker,
		onArrive: opts.OnArrive,
		pos:      NewPosition(model.Point{}),
		target:   CenterIndex,
	}
	e.pos.OnChange(e.checkArrival)
	return e, nil
}

// ValidateConfig checks pattern tuning values.
func ValidateConfig(cfg model.PatternConfig) error {
	if cfg.ArrivalRadius <= 0 {
		return fmt.Errorf("arrival radius must be > 0")
	}
	if cfg.MaxSize <= 0 {
		return fmt.Errorf("max surface size must be > 0")
	}
	if cfg.Stiffness <= 0 {
		return fmt.Errorf("spring stiffness must be > 0")
	}
	if cfg.Damping < 0 {
		return fmt.Errorf("spring damping must be >= 0")
	}
	if cfg.Mass < 0 {
		return fmt.Errorf("spring mass must be >= 0")
	}
	return nil
}

// Resize rebuilds the lattice for a surface of the given width. The active
// target index is kept.
func (e *Engine) Resize(width float64) {
	e.lattice = NewLattice(SurfaceSize(width, e.cfg.MaxSize))
	if !e.lattice.Valid() {
		return
	}
	if e.dragging {
		e.pos.Set(e.lattice.Clamp(e.pos.Get()))
		return
	}
	e.anim = nil
	e.pos.Set(e.lattice.Center())
}

// BeginDrag starts a drag and cancels a running return animation.
func (e *Engine) BeginDrag() {
	e.anim = nil
	e.dragging = true
}

// Drag moves the ball to p clamped to the surface.
func (e *Engine) Drag(p model.Point) {
	if !e.dragging || !e.lattice.Valid() {
		return
	}
	e.pos.Set(e.lattice.Clamp(p))
}

// EndDrag releases the ball: it springs back to the center and the center
// becomes the active target again.
func (e *Engine) EndDrag() {
	if !e.dragging {
		return
	}
	e.dragging = false
	if !e.lattice.Valid() {
		return
	}
	e.anim = NewAnimation(e.spring, e.pos.Get(), e.lattice.Center())
	e.setTarget(CenterIndex)
}

// Step advances the return animation by one frame. It reports whether more
// frames are needed.
func (e *Engine) Step(dt time.Duration) bool {
	if e.anim == nil {
		return false
	}
	e.pos.Set(e.anim.Step(dt))
	if e.anim.Done() {
		e.anim = nil
		return false
	}
	return true
}

// Animating reports whether a return animation is running.
func (e *Engine) Animating() bool { return e.anim != nil }

// Dragging reports whether a drag is active.
func (e *Engine) Dragging() bool { return e.dragging }

// Position returns the ball position.
func (e *Engine) Position() model.Point { return e.pos.Get() }

// Target returns the active target index.
func (e *Engine) Target() int { return e.target }

// Score returns the number of arrivals.
func (e *Engine) Score() int { return e.score }

// Lattice returns the current lattice.
func (e *Engine) Lattice() Lattice { return e.lattice }

// OnMove registers a listener for ball position changes.
func (e *Engine) OnMove(fn func(model.Point)) func() {
	return e.pos.OnChange(fn)
}

func (e *Engine) checkArrival(p model.Point) {
	if !e.dragging || e.arriving {
		return
	}
	target, ok := e.lattice.Point(e.target)
	if !ok {
		return
	}
	if p.Dist(target) >= e.cfg.ArrivalRadius {
		return
	}
	e.arriving = true
	e.score++
	from := e.target
	e.setTarget(e.picker.Next(from))
	if e.onArrive != nil {
		e.onArrive(Arrival{Score: e.score, From: from, To: e.target})
	}
}

// setTarget releases the arrival guard only when the index really changes.
func (e *Engine) setTarget(i int) {
	if i == e.target {
		return
	}
	e.target = i
	e.arriving = false
}
