package tables

import (
	"strings"

	"github.com/tsawler/docparse/model"
)

// Flatten expands spans into a dense grid. The text of a spanning cell is
// placed at its top-left position only.
func Flatten(t *model.Table) [][]string {
	if t == nil || len(t.Rows) == 0 {
		return nil
	}

	grid := make([][]string, 0, len(t.Rows))
	// carry[c] is the number of rows, counting the current one, that column
	// c is still reserved for.
	var carry []int
	width := 0

	for _, row := range t.Rows {
		line := make([]string, len(carry))
		col := 0
		for _, cell := range row {
			for col < len(carry) && carry[col] > 0 {
				col++
			}
			cs, rs := cell.Spans()
			for len(carry) < col+cs {
				carry = append(carry, 0)
			}
			for len(line) < col+cs {
				line = append(line, "")
			}
			line[col] = cell.Text
			for c := col; c < col+cs; c++ {
				carry[c] = rs
			}
			col += cs
		}

		for c := range carry {
			if carry[c] > 0 {
				if c+1 > width {
					width = c + 1
				}
				carry[c]--
			}
		}
		if len(line) > width {
			width = len(line)
		}
		grid = append(grid, line)
	}

	for i, line := range grid {
		for len(line) < width {
			line = append(line, "")
		}
		grid[i] = line[:width]
	}
	return grid
}

// PlainText renders the flattened grid with cells joined by " | " and rows
// joined by newlines. Newlines inside cells become spaces.
func PlainText(t *model.Table) string {
	grid := Flatten(t)
	rows := make([]string, len(grid))
	for i, line := range grid {
		cells := make([]string, len(line))
		for j, text := range line {
			cells[j] = strings.Join(strings.Fields(text), " ")
		}
		rows[i] = strings.Join(cells, " | ")
	}
	return strings.Join(rows, "\n")
}
