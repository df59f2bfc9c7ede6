package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	cols := []column{{header: "Mode"}, {header: "Metric", right: true}, {header: "Samples", right: true}}
	rows := [][]string{
		{"pattern", "97.50%", "120"},
		{"drawing", "8.00%", "3"},
	}

	lines := formatTable(cols, rows)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Mode    Metric Samples" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "pattern 97.50%     120" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "drawing  8.00%       3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableUsesDisplayWidth(t *testing.T) {
	cols := []column{{header: "Name"}, {header: "N", right: true}}
	lines := formatTable(cols, [][]string{{"한글", "1"}, {"ab", "22"}})
	if lines[1] != "한글  1" {
		t.Fatalf("unexpected wide row: %q", lines[1])
	}
	if lines[2] != "ab   22" {
		t.Fatalf("unexpected narrow row: %q", lines[2])
	}
}
