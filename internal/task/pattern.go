package task

import (
	"github.com/verte-zerg/tracepad/internal/model"
	"github.com/verte-zerg/tracepad/internal/trajectory"
)

// BallRadius is the grab radius of the pattern ball.
const BallRadius = 24.0

// Pattern guides the ball across the target lattice.
type Pattern struct {
	*trajectory.Engine
}

// NewPattern wraps a trajectory engine.
func NewPattern(cfg model.PatternConfig, picker *trajectory.Picker) (*Pattern, error) {
	e, err := trajectory.NewEngine(cfg, trajectory.Options{Picker: picker})
	if err != nil {
		return nil, err
	}
	return &Pattern{Engine: e}, nil
}

// Mode implements Task.
func (p *Pattern) Mode() model.Mode { return model.ModePattern }

// Size implements Task.
func (p *Pattern) Size() float64 { return p.Lattice().Size }

// Grab accepts presses on the ball.
func (p *Pattern) Grab(pt model.Point) bool {
	if !p.Lattice().Valid() {
		return false
	}
	return pt.Dist(p.Position()) <= BallRadius
}

// Begin implements Task.
func (p *Pattern) Begin(model.Point) { p.BeginDrag() }

// End implements Task.
func (p *Pattern) End() { p.EndDrag() }
