// Placement validation: bounds and occupancy checks for candidate footprints.
// These run on every pointer move, so they return booleans instead of errors.
package world

// CanPlace reports whether a width x height footprint anchored at (x, y) lies
// entirely inside the grid and covers only empty cells. Bounds are checked first.
func CanPlace(g *Grid, x, y, width, height int) bool {
	if x < 0 || y < 0 || x+width > g.size || y+height > g.size {
		return false
	}

	for dx := 0; dx < width; dx++ {
		for dy := 0; dy < height; dy++ {
			if g.occupied(x+dx, y+dy) {
				return false
			}
		}
	}
	return true
}

// ClampAnchor pulls a raw candidate anchor back onto the grid so that a
// width x height footprint fits: x into [0, n-width], y into [0, n-height].
func ClampAnchor(n, x, y, width, height int) Cell {
	return Cell{
		X: clamp(x, 0, n-width),
		Y: clamp(y, 0, n-height),
	}
}

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
