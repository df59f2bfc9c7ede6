package trajectory

import (
	"math"
	"time"

	"github.com/verte-zerg/tracepad/internal/model"
)

const (
	restSpeed = 2.0
	restDelta = 0.5
)

// Spring is a damped harmonic oscillator with unit-less stiffness, damping and mass.
type Spring struct {
	Stiffness float64
	Damping   float64
	Mass      float64
}

// Animation moves a point toward a target following a Spring.
type Animation struct {
	spring Spring
	target model.Point
	pos    model.Point
	vel    model.Point
	done   bool
}

// NewAnimation starts an animation from p at rest toward target.
func NewAnimation(s Spring, from, target model.Point) *Animation {
	if s.Mass <= 0 {
		s.Mass = 1
	}
	a := &Animation{spring: s, target: target, pos: from}
	a.done = a.atRest()
	if a.done {
		a.pos = target
	}
	return a
}

// Done reports whether the animation settled.
func (a *Animation) Done() bool {
	return a.done
}

// Target returns the rest position.
func (a *Animation) Target() model.Point {
	return a.target
}

// Step advances the animation by dt and returns the new position.
func (a *Animation) Step(dt time.Duration) model.Point {
	if a.done || dt <= 0 {
		return a.pos
	}
	t := dt.Seconds()
	x, vx := a.spring.advance(a.pos.X-a.target.X, a.vel.X, t)
	y, vy := a.spring.advance(a.pos.Y-a.target.Y, a.vel.Y, t)
	a.pos = model.Point{X: a.target.X + x, Y: a.target.Y + y}
	a.vel = model.Point{X: vx, Y: vy}
	if a.atRest() {
		a.pos = a.target
		a.vel = model.Point{}
		a.done = true
	}
	return a.pos
}

func (a *Animation) atRest() bool {
	return math.Hypot(a.vel.X, a.vel.Y) < restSpeed && a.pos.Dist(a.target) < restDelta
}

// advance evolves displacement x0 with velocity v0 over t seconds using the
// closed-form solution, so large frame gaps stay stable.
func (s Spring) advance(x0, v0, t float64) (x, v float64) {
	w0 := math.Sqrt(s.Stiffness / s.Mass)
	zeta := s.Damping / (2 * math.Sqrt(s.Stiffness*s.Mass))
	switch {
	case math.Abs(zeta-1) < 1e-9:
		b := v0 + w0*x0
		e := math.Exp(-w0 * t)
		return e * (x0 + b*t), e * (v0 - w0*b*t)
	case zeta < 1:
		a := zeta * w0
		wd := w0 * math.Sqrt(1-zeta*zeta)
		b := (v0 + a*x0) / wd
		e := math.Exp(-a * t)
		cos, sin := math.Cos(wd*t), math.Sin(wd*t)
		return e * (x0*cos + b*sin), e * (v0*cos - (a*b+wd*x0)*sin)
	default:
		root := w0 * math.Sqrt(zeta*zeta-1)
		r1 := -zeta*w0 + root
		r2 := -zeta*w0 - root
		c2 := (v0 - r1*x0) / (r2 - r1)
		c1 := x0 - c2
		e1, e2 := math.Exp(r1*t), math.Exp(r2*t)
		return c1*e1 + c2*e2, r1*c1*e1 + r2*c2*e2
	}
}
