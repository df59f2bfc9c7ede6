package trajectory

import "github.com/verte-zerg/tracepad/internal/model"

// Position is a mutable 2D value with synchronous change notification.
type Position struct {
	value     model.Point
	nextID    int
	listeners map[int]func(model.Point)
	order     []int
}

// NewPosition returns a position at p.
func NewPosition(p model.Point) *Position {
	return &Position{value: p, listeners: map[int]func(model.Point){}}
}

// Get returns the current value.
func (p *Position) Get() model.Point {
	return p.value
}

// Set updates the value and notifies listeners when it changed.
func (p *Position) Set(v model.Point) {
	if v == p.value {
		return
	}
	p.value = v
	p.notify()
}

// OnChange registers fn and returns a function removing it.
func (p *Position) OnChange(fn func(model.Point)) func() {
	p.nextID++
	id := p.nextID
	p.listeners[id] = fn
	p.order = append(p.order, id)
	return func() {
		delete(p.listeners, id)
		for i, v := range p.order {
			if v == id {
				p.order = append(p.order[:i], p.order[i+1:]...)
				break
			}
		}
	}
}

func (p *Position) notify() {
	ids := append([]int(nil), p.order...)
	for _, id := range ids {
		if fn, ok := p.listeners[id]; ok {
			fn(p.value)
		}
	}
}
