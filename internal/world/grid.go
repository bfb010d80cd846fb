package world

import (
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned by raw grid queries outside [0, N).
var ErrOutOfBounds = errors.New("cell out of bounds")

// Grid is an N x N occupancy map. Each cell is either empty (nil) or points
// at the building covering it. The grid is a projection of the owner's
// building list and performs no validation on writes.
type Grid struct {
	size  int
	cells []*Building // row-major: index y*size + x
}

// NewGrid creates an empty grid of the given dimension.
func NewGrid(size int) *Grid {
	return &Grid{
		size:  size,
		cells: make([]*Building, size*size),
	}
}

// Size returns N.
func (g *Grid) Size() int {
	return g.size
}

// InBounds returns true if (x, y) lies on the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.size && y < g.size
}

// Occupant returns the building covering (x, y), or nil when the cell is empty.
func (g *Grid) Occupant(x, y int) (*Building, error) {
	if !g.InBounds(x, y) {
		return nil, fmt.Errorf("%w: (%d,%d) on %dx%d grid", ErrOutOfBounds, x, y, g.size, g.size)
	}
	return g.cells[y*g.size+x], nil
}

// occupied is the unchecked read used by the validator after its bounds check.
func (g *Grid) occupied(x, y int) bool {
	return g.cells[y*g.size+x] != nil
}

// MarkOccupied points every cell of the footprint at b.
// The caller must have validated the footprint with CanPlace.
func (g *Grid) MarkOccupied(anchorX, anchorY, width, height int, b *Building) {
	for dx := 0; dx < width; dx++ {
		for dy := 0; dy < height; dy++ {
			g.cells[(anchorY+dy)*g.size+anchorX+dx] = b
		}
	}
}

// Clear empties every cell.
func (g *Grid) Clear() {
	clear(g.cells)
}

// OccupiedCount returns the number of non-empty cells.
func (g *Grid) OccupiedCount() int {
	n := 0
	for _, b := range g.cells {
		if b != nil {
			n++
		}
	}
	return n
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(size=%d, occupied=%d)", g.size, g.OccupiedCount())
}
