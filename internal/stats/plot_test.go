package stats

import (
	"bytes"
	"strings"
	"testing"
)

func TestPlot(t *testing.T) {
	var buf bytes.Buffer
	err := Plot(&buf, "Test Plot", []Series{
		{Name: "A", Values: []float64{1, 2, 3, 2, 1}},
		{Name: "B", Values: []float64{1, 1, 2, 3, 4}},
		{Name: "Empty"},
	}, PlotOptions{Width: 10, Height: 4})
	if err != nil {
		t.Fatalf("Plot failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Test Plot", "A: min=1.00 max=3.00", "B: min=1.00 max=4.00", "Legend: A  B"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Empty") {
		t.Fatalf("empty series must be skipped")
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 1+2+4+1 {
		t.Fatalf("expected %d lines, got %d", 1+2+4+1, len(lines))
	}
}

func TestPlotWidthFor(t *testing.T) {
	if got := PlotWidthFor(80); got != 80-3-3 {
		t.Fatalf("unexpected width %d", got)
	}
	if got := PlotWidthFor(0); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
}

func TestResample(t *testing.T) {
	if got := resample([]float64{0, 10}, 3); got[1] != 5 || got[2] != 10 {
		t.Fatalf("unexpected stretch: %v", got)
	}
	if got := resample([]float64{1, 3, 5, 7}, 2); got[0] != 2 || got[1] != 6 {
		t.Fatalf("unexpected shrink: %v", got)
	}
}
