// Package capture implements the pointer capture session state machine.
package capture

import (
	"time"

	"github.com/verte-zerg/tracepad/internal/model"
)

// Decision is the outcome of observing one raw pointer position.
type Decision struct {
	// Accepted is true when the movement exceeded the threshold.
	Accepted bool
	// Record is true when the accepted sample should be appended.
	Record bool
	// Delta is the time since the last recorded sample.
	Delta time.Duration
}

// Filter suppresses jitter by comparing positions to the last recorded one.
type Filter struct {
	threshold float64
	tolerance time.Duration
	last      model.Point
	lastAt    time.Time
}

// NewFilter returns a filter with the given distance threshold and time tolerance.
func NewFilter(threshold float64, tolerance time.Duration) *Filter {
	return &Filter{threshold: threshold, tolerance: tolerance}
}

// Reset anchors the reference position and time.
func (f *Filter) Reset(p model.Point, at time.Time) {
	f.last = p
	f.lastAt = at
}

// Reference returns the current reference position.
func (f *Filter) Reference() model.Point {
	return f.last
}

// Observe evaluates p at now. Rejected positions leave the filter untouched.
func (f *Filter) Observe(p model.Point, now time.Time) Decision {
	if p.Dist(f.last) <= f.threshold {
		return Decision{}
	}
	f.last = p
	delta := now.Sub(f.lastAt)
	if delta < f.tolerance {
		return Decision{Accepted: true, Delta: delta}
	}
	f.lastAt = now
	return Decision{Accepted: true, Record: true, Delta: delta}
}
