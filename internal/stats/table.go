package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

type column struct {
	header string
	right  bool
}

func formatTable(cols []column, rows [][]string) []string {
	if len(cols) == 0 {
		return nil
	}
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = runewidth.StringWidth(c.header)
	}
	for _, row := range rows {
		for i := range cols {
			if i < len(row) {
				widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
			}
		}
	}

	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.header
	}
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, formatRow(cols, headers, widths))
	for _, row := range rows {
		lines = append(lines, formatRow(cols, row, widths))
	}
	return lines
}

func formatRow(cols []column, row []string, widths []int) string {
	cells := make([]string, len(cols))
	for i, c := range cols {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		pad := strings.Repeat(" ", max(0, widths[i]-runewidth.StringWidth(cell)))
		if c.right {
			cells[i] = pad + cell
		} else {
			cells[i] = cell + pad
		}
	}
	return strings.TrimRight(strings.Join(cells, " "), " ")
}
