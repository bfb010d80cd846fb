// Package world provides the square occupancy grid, placed buildings and
// the placement validator.
// Cells use (x, y) with (0, 0) at the lower-left corner of the grid.
package world

import "fmt"

// Cell is a position on the grid.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Offset returns the cell shifted by (dx, dy).
func (c Cell) Offset(dx, dy int) Cell {
	return Cell{X: c.X + dx, Y: c.Y + dy}
}

// String returns the cell as a board label, columns numbered from 1 and rows lettered from A.
func (c Cell) String() string {
	if c.Y >= 0 && c.Y < 26 {
		return fmt.Sprintf("%c%d", 'A'+rune(c.Y), c.X+1)
	}
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// FootprintCells lists every cell covered by a width x height footprint anchored at anchor.
func FootprintCells(anchor Cell, width, height int) []Cell {
	cells := make([]Cell, 0, width*height)
	for dx := 0; dx < width; dx++ {
		for dy := 0; dy < height; dy++ {
			cells = append(cells, anchor.Offset(dx, dy))
		}
	}
	return cells
}
