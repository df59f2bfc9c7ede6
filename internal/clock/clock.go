// Package clock provides event-loop scheduling for capture timers.
package clock

import (
	"sort"
	"time"
)

// Cancel stops a scheduled callback. Calling it after the callback fired is a no-op.
type Cancel func()

// Scheduler runs callbacks on the caller's event loop. Implementations must never
// invoke a callback concurrently with other loop handlers.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Cancel
}

type pending struct {
	at  time.Time
	seq uint64
	fn  func()
}

// Virtual is a manually advanced Scheduler. Callbacks fire inside Advance/AdvanceTo
// in deadline order; ties fire in scheduling order.
type Virtual struct {
	now     time.Time
	seq     uint64
	pending map[uint64]*pending
}

// NewVirtual returns a virtual scheduler starting at start.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start, pending: map[uint64]*pending{}}
}

// Now returns the virtual time.
func (v *Virtual) Now() time.Time {
	return v.now
}

// AfterFunc schedules fn to run once the virtual clock reaches now+d.
func (v *Virtual) AfterFunc(d time.Duration, fn func()) Cancel {
	if d < 0 {
		d = 0
	}
	v.seq++
	id := v.seq
	v.pending[id] = &pending{at: v.now.Add(d), seq: id, fn: fn}
	return func() {
		delete(v.pending, id)
	}
}

// Advance moves the clock forward by d, firing due callbacks.
func (v *Virtual) Advance(d time.Duration) {
	v.AdvanceTo(v.now.Add(d))
}

// AdvanceTo moves the clock to t, firing every callback due at or before t.
// Callbacks scheduled while advancing fire too when they fall inside the window.
func (v *Virtual) AdvanceTo(t time.Time) {
	for {
		next := v.next()
		if next == nil || next.at.After(t) {
			break
		}
		delete(v.pending, next.seq)
		if next.at.After(v.now) {
			v.now = next.at
		}
		next.fn()
	}
	if t.After(v.now) {
		v.now = t
	}
}

// Pending reports the number of scheduled callbacks.
func (v *Virtual) Pending() int {
	return len(v.pending)
}

// NextDeadline returns the earliest scheduled time, if any.
func (v *Virtual) NextDeadline() (time.Time, bool) {
	next := v.next()
	if next == nil {
		return time.Time{}, false
	}
	return next.at, true
}

func (v *Virtual) next() *pending {
	if len(v.pending) == 0 {
		return nil
	}
	items := make([]*pending, 0, len(v.pending))
	for _, p := range v.pending {
		items = append(items, p)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].at.Equal(items[j].at) {
			return items[i].seq < items[j].seq
		}
		return items[i].at.Before(items[j].at)
	})
	return items[0]
}
