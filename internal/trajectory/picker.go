package trajectory

import (
	"math/rand"
	"time"
)

// Picker chooses target cells at random.
type Picker struct {
	rnd *rand.Rand
}

// NewPicker returns a Picker seeded with the current time.
func NewPicker() *Picker {
	return NewSeededPicker(time.Now().UnixNano())
}

// NewSeededPicker returns a deterministic Picker.
func NewSeededPicker(seed int64) *Picker {
	return &Picker{rnd: rand.New(rand.NewSource(seed))}
}

// Next draws uniformly from the lattice until the result differs from current.
func (p *Picker) Next(current int) int {
	for {
		next := p.rnd.Intn(LatticeSize)
		if next != current {
			return next
		}
	}
}
