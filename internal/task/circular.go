package task

import (
	"math"
	"time"

	"github.com/verte-zerg/tracepad/internal/model"
	"github.com/verte-zerg/tracepad/internal/trajectory"
)

// RingRatio is the dial radius relative to the surface size.
const RingRatio = 0.35

// Circular is a rotary dial: the knob follows the pointer angle around the
// ring and springs back to twelve o'clock on release.
type Circular struct {
	cfg      model.PatternConfig
	size     float64
	angle    float64
	turned   float64
	dragging bool
	anim     *trajectory.Animation
}

// NewCircular returns a dial with an empty surface.
func NewCircular(cfg model.PatternConfig) *Circular {
	return &Circular{cfg: cfg}
}

// Mode implements Task.
func (c *Circular) Mode() model.Mode { return model.ModeCircular }

// Resize implements Task.
func (c *Circular) Resize(width float64) {
	c.size = trajectory.SurfaceSize(width, c.cfg.MaxSize)
}

// Size implements Task.
func (c *Circular) Size() float64 { return c.size }

// Center returns the dial center.
func (c *Circular) Center() model.Point {
	return model.Point{X: c.size / 2, Y: c.size / 2}
}

// Radius returns the ring radius.
func (c *Circular) Radius() float64 { return c.size * RingRatio }

// Angle returns the knob angle in degrees clockwise from twelve o'clock.
func (c *Circular) Angle() float64 { return c.angle }

// Turned returns the accumulated rotation in degrees during the current drag.
func (c *Circular) Turned() float64 { return c.turned }

// Knob returns the knob position.
func (c *Circular) Knob() model.Point {
	rad := c.angle * math.Pi / 180
	center := c.Center()
	return model.Point{
		X: center.X + c.Radius()*math.Sin(rad),
		Y: center.Y - c.Radius()*math.Cos(rad),
	}
}

// Grab accepts presses on the knob.
func (c *Circular) Grab(p model.Point) bool {
	if c.size <= 0 {
		return false
	}
	return p.Dist(c.Knob()) <= BallRadius
}

// Begin implements Task.
func (c *Circular) Begin(model.Point) {
	c.anim = nil
	c.dragging = true
	c.turned = 0
}

// Drag rotates the knob toward p.
func (c *Circular) Drag(p model.Point) {
	if !c.dragging || c.size <= 0 {
		return
	}
	center := c.Center()
	dx, dy := p.X-center.X, p.Y-center.Y
	if dx == 0 && dy == 0 {
		return
	}
	next := math.Atan2(dx, -dy) * 180 / math.Pi
	delta := next - normalizeDegrees(c.angle)
	if delta > 180 {
		delta -= 360
	} else if delta < -180 {
		delta += 360
	}
	c.turned += delta
	c.angle += delta
}

// End springs the knob back to twelve o'clock along the shortest arc.
func (c *Circular) End() {
	if !c.dragging {
		return
	}
	c.dragging = false
	c.angle = normalizeDegrees(c.angle)
	spring := trajectory.Spring{Stiffness: c.cfg.Stiffness, Damping: c.cfg.Damping, Mass: c.cfg.Mass}
	c.anim = trajectory.NewAnimation(spring, model.Point{X: c.angle}, model.Point{})
	if c.anim.Done() {
		c.angle = 0
		c.anim = nil
	}
}

// Step implements Task.
func (c *Circular) Step(dt time.Duration) bool {
	if c.anim == nil {
		return false
	}
	c.angle = c.anim.Step(dt).X
	if c.anim.Done() {
		c.anim = nil
		return false
	}
	return true
}

// Animating implements Task.
func (c *Circular) Animating() bool { return c.anim != nil }

// normalizeDegrees maps a to (-180, 180].
func normalizeDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a > 180 {
		a -= 360
	} else if a <= -180 {
		a += 360
	}
	return a
}
