package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Series represents a named data series for plotting.
type Series struct {
	Name   string
	Values []float64
}

// PlotOptions size and colour a plot. Zero width follows the terminal.
type PlotOptions struct {
	Width      int
	Height     int
	ForceColor bool
}

const (
	defaultPlotHeight = 8
	minPlotWidth      = 10
	fallbackWidth     = 80
	axisSeparator     = " | "
	colorReset        = "\x1b[0m"
)

var seriesColors = []string{"\x1b[36m", "\x1b[35m", "\x1b[33m", "\x1b[32m"}

// canvas is a grid of braille cells, two dots wide and four tall.
type canvas struct {
	w, h  int
	cells [][]uint8
	owner [][]int
}

func newCanvas(w, h int) *canvas {
	c := &canvas{w: w, h: h, cells: make([][]uint8, h), owner: make([][]int, h)}
	for y := range c.cells {
		c.cells[y] = make([]uint8, w)
		c.owner[y] = make([]int, w)
		for x := range c.owner[y] {
			c.owner[y][x] = -1
		}
	}
	return c
}

var dotBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

func (c *canvas) set(x, y, series int) {
	cx, cy := x/2, y/4
	if x < 0 || y < 0 || cx >= c.w || cy >= c.h {
		return
	}
	c.cells[cy][cx] |= dotBits[x%2][y%4]
	if c.owner[cy][cx] < 0 {
		c.owner[cy][cx] = series
	}
}

// line draws with Bresenham between two dot coordinates.
func (c *canvas) line(x0, y0, x1, y1, series int) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	for {
		c.set(x0, y0, series)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (c *canvas) row(y int, color bool) string {
	var b strings.Builder
	for x := 0; x < c.w; x++ {
		ch := rune(0x2800 + int(c.cells[y][x]))
		if color && c.owner[y][x] >= 0 {
			b.WriteString(seriesColors[c.owner[y][x]%len(seriesColors)])
			b.WriteRune(ch)
			b.WriteString(colorReset)
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// Plot renders series as a braille chart, each scaled to its own range.
func Plot(w io.Writer, title string, series []Series, opts PlotOptions) error {
	kept := series[:0:0]
	for _, s := range series {
		if len(s.Values) > 0 {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	height := opts.Height
	if height <= 0 {
		height = defaultPlotHeight
	}
	width := opts.Width
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	width = max(width, minPlotWidth)

	c := newCanvas(width, height)
	dotsX, dotsY := width*2, height*4
	header := []string{title}
	for si, s := range kept {
		values := resample(s.Values, width)
		lo, hi := minMax(values)
		header = append(header, fmt.Sprintf("%s: min=%.2f max=%.2f", s.Name, lo, hi))
		if hi-lo < 1e-9 {
			lo, hi = lo-1, hi+1
		}
		prevX, prevY := -1, 0
		for i, v := range values {
			x := i * 2
			if x >= dotsX {
				break
			}
			y := int(math.Round((hi - v) / (hi - lo) * float64(dotsY-1)))
			if prevX < 0 {
				c.set(x, y, si)
			} else {
				c.line(prevX, prevY, x, y, si)
			}
			prevX, prevY = x, y
		}
	}

	color := useColor(w, opts.ForceColor)
	for _, line := range header {
		if line == "" {
			continue
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	for y := 0; y < height; y++ {
		label := ""
		switch y {
		case 0:
			label = "max"
		case height - 1:
			label = "min"
		}
		if _, err := fmt.Fprintf(w, "%3s%s%s\n", label, axisSeparator, c.row(y, color)); err != nil {
			return err
		}
	}
	legend := make([]string, len(kept))
	for i, s := range kept {
		legend[i] = s.Name
		if color {
			legend[i] = seriesColors[i%len(seriesColors)] + s.Name + colorReset
		}
	}
	_, err := fmt.Fprintf(w, "Legend: %s\n\n", strings.Join(legend, "  "))
	return err
}

// PlotWidthFor computes the plot width that fits the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	return max(totalWidth-3-runewidth.StringWidth(axisSeparator), minPlotWidth)
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackWidth
	}
	return width
}

func useColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// resample stretches or averages values into n points.
func resample(values []float64, n int) []float64 {
	out := make([]float64, n)
	switch {
	case len(values) == 0:
		return nil
	case len(values) == 1 || n == 1:
		for i := range out {
			out[i] = values[0]
		}
	case len(values) > n:
		for i := range out {
			start := i * len(values) / n
			end := max((i+1)*len(values)/n, start+1)
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	default:
		for i := range out {
			pos := float64(i) * float64(len(values)-1) / float64(n-1)
			idx := min(int(pos), len(values)-2)
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
