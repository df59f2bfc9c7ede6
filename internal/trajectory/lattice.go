// Package trajectory drives the pattern task: a dragged ball, a 3x3 target
// lattice, arrival detection and spring return-to-rest.
package trajectory

import "github.com/verte-zerg/tracepad/internal/model"

const (
	// LatticeSide is the number of cells per lattice row.
	LatticeSide = 3
	// LatticeSize is the number of lattice cells.
	LatticeSize = LatticeSide * LatticeSide
	// CenterIndex is the index of the middle cell.
	CenterIndex = 4
)

// Lattice holds the evenly spaced target cells for a square surface.
type Lattice struct {
	Size    float64
	Spacing float64
	Points  [LatticeSize]model.Point
}

// NewLattice builds the lattice for a surface of the given side length.
func NewLattice(size float64) Lattice {
	if size <= 0 {
		return Lattice{}
	}
	l := Lattice{Size: size, Spacing: size / LatticeSide}
	for i := range l.Points {
		l.Points[i] = model.Point{
			X: float64(i%LatticeSide)*l.Spacing + l.Spacing/2,
			Y: float64(i/LatticeSide)*l.Spacing + l.Spacing/2,
		}
	}
	return l
}

// SurfaceSize bounds a reported surface width to maxSize.
func SurfaceSize(width, maxSize float64) float64 {
	if width <= 0 {
		return 0
	}
	if width > maxSize {
		return maxSize
	}
	return width
}

// Valid reports whether the lattice has usable geometry.
func (l Lattice) Valid() bool {
	return l.Size > 0
}

// Center returns the middle cell.
func (l Lattice) Center() model.Point {
	return l.Points[CenterIndex]
}

// Point returns cell i, or false for an invalid lattice or index.
func (l Lattice) Point(i int) (model.Point, bool) {
	if !l.Valid() || i < 0 || i >= LatticeSize {
		return model.Point{}, false
	}
	return l.Points[i], true
}

// Clamp limits p to the surface square.
func (l Lattice) Clamp(p model.Point) model.Point {
	return model.Point{X: clamp(p.X, 0, l.Size), Y: clamp(p.Y, 0, l.Size)}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
