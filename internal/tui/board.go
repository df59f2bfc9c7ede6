package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tracepad/internal/model"
	"github.com/verte-zerg/tracepad/internal/task"
	"github.com/verte-zerg/tracepad/internal/trajectory"
)

// Terminal cells are roughly twice as tall as wide.
const (
	unitsPerCol = 10.0
	unitsPerRow = 20.0
)

type cell struct {
	r     rune
	style lipgloss.Style
	set   bool
}

type board struct {
	cols, rows int
	cells      [][]cell
}

func newBoard(size float64) board {
	b := board{
		cols: int(math.Ceil(size / unitsPerCol)),
		rows: int(math.Ceil(size / unitsPerRow)),
	}
	b.cells = make([][]cell, b.rows)
	for y := range b.cells {
		b.cells[y] = make([]cell, b.cols)
	}
	return b
}

// cellFor maps a surface point onto a board cell.
func (b board) cellFor(p model.Point) (int, int, bool) {
	x := int(math.Floor(p.X / unitsPerCol))
	y := int(math.Floor(p.Y / unitsPerRow))
	if x < 0 || y < 0 || x >= b.cols || y >= b.rows {
		return 0, 0, false
	}
	return x, y, true
}

func (b board) plot(p model.Point, r rune, style lipgloss.Style) {
	x, y, ok := b.cellFor(p)
	if !ok {
		return
	}
	b.cells[y][x] = cell{r: r, style: style, set: true}
}

func (b board) render() string {
	lines := make([]string, b.rows)
	for y, row := range b.cells {
		var sb strings.Builder
		for _, c := range row {
			if !c.set {
				sb.WriteByte(' ')
				continue
			}
			s := string(c.r)
			if runewidth.RuneWidth(c.r) != 1 {
				s = "*"
			}
			sb.WriteString(c.style.Render(s))
		}
		lines[y] = sb.String()
	}
	return strings.Join(lines, "\n")
}

// drawTask paints the task state onto a fresh board.
func drawTask(t task.Task) board {
	b := newBoard(t.Size())
	switch t := t.(type) {
	case *task.Pattern:
		drawPattern(b, t)
	case *task.Circular:
		drawCircular(b, t)
	case *task.Drawing:
		drawStrokes(b, t)
	}
	return b
}

func drawPattern(b board, p *task.Pattern) {
	lattice := p.Lattice()
	for i := 0; i < trajectory.LatticeSize; i++ {
		pt, _ := lattice.Point(i)
		b.plot(pt, '·', mutedStyle)
	}
	if target, ok := lattice.Point(p.Target()); ok {
		b.plot(target, '◎', accentStyle)
	}
	b.plot(p.Position(), '●', brightStyle)
}

func drawCircular(b board, c *task.Circular) {
	center, radius := c.Center(), c.Radius()
	for deg := 0; deg < 360; deg += 6 {
		rad := float64(deg) * math.Pi / 180
		b.plot(model.Point{X: center.X + radius*math.Sin(rad), Y: center.Y - radius*math.Cos(rad)}, '·', mutedStyle)
	}
	b.plot(center, '+', mutedStyle)
	b.plot(c.Knob(), '●', brightStyle)
}

func drawStrokes(b board, d *task.Drawing) {
	strokes := d.Strokes()
	for i, stroke := range strokes {
		style := pendingStyle
		if i == len(strokes)-1 {
			style = brightStyle
		}
		for _, pt := range stroke {
			b.plot(pt, '•', style)
		}
	}
}
