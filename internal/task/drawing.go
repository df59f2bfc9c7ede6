package task

import (
	"time"

	"github.com/verte-zerg/tracepad/internal/model"
	"github.com/verte-zerg/tracepad/internal/trajectory"
)

// MaxStrokePoints bounds the retained drawing history.
const MaxStrokePoints = 4000

// Drawing is free-hand drawing anywhere on the surface.
type Drawing struct {
	cfg      model.PatternConfig
	size     float64
	strokes  [][]model.Point
	points   int
	dragging bool
}

// NewDrawing returns an empty canvas.
func NewDrawing(cfg model.PatternConfig) *Drawing {
	return &Drawing{cfg: cfg}
}

// Mode implements Task.
func (d *Drawing) Mode() model.Mode { return model.ModeDrawing }

// Resize implements Task. Existing strokes are kept.
func (d *Drawing) Resize(width float64) {
	d.size = trajectory.SurfaceSize(width, d.cfg.MaxSize)
}

// Size implements Task.
func (d *Drawing) Size() float64 { return d.size }

// Grab accepts presses anywhere on a usable surface.
func (d *Drawing) Grab(p model.Point) bool {
	return d.size > 0 && p.X >= 0 && p.Y >= 0 && p.X <= d.size && p.Y <= d.size
}

// Begin starts a new stroke at p.
func (d *Drawing) Begin(p model.Point) {
	d.dragging = true
	d.strokes = append(d.strokes, []model.Point{d.clamp(p)})
	d.points++
	d.trim()
}

// Drag extends the current stroke.
func (d *Drawing) Drag(p model.Point) {
	if !d.dragging || len(d.strokes) == 0 {
		return
	}
	last := len(d.strokes) - 1
	d.strokes[last] = append(d.strokes[last], d.clamp(p))
	d.points++
	d.trim()
}

// End implements Task.
func (d *Drawing) End() { d.dragging = false }

// Step implements Task.
func (d *Drawing) Step(time.Duration) bool { return false }

// Animating implements Task.
func (d *Drawing) Animating() bool { return false }

// Strokes returns the retained strokes, oldest first.
func (d *Drawing) Strokes() [][]model.Point { return d.strokes }

// Clear drops every stroke.
func (d *Drawing) Clear() {
	d.strokes = nil
	d.points = 0
}

func (d *Drawing) clamp(p model.Point) model.Point {
	return trajectory.NewLattice(d.size).Clamp(p)
}

// trim drops the oldest points once the history exceeds MaxStrokePoints.
func (d *Drawing) trim() {
	for d.points > MaxStrokePoints {
		if len(d.strokes) > 1 {
			d.points -= len(d.strokes[0])
			d.strokes = d.strokes[1:]
			continue
		}
		drop := d.points - MaxStrokePoints
		d.strokes[0] = d.strokes[0][drop:]
		d.points -= drop
	}
}
