package world

import (
	"testing"
	"time"

	"github.com/talgya/gridcity/internal/catalog"
)

func TestCanPlaceInsideEmptyGrid(t *testing.T) {
	g := NewGrid(8)

	for w := 1; w <= 3; w++ {
		for h := 1; h <= 3; h++ {
			for x := 0; x+w <= 8; x++ {
				for y := 0; y+h <= 8; y++ {
					if !CanPlace(g, x, y, w, h) {
						t.Fatalf("%dx%d at (%d,%d) should fit on an empty grid", w, h, x, y)
					}
				}
			}
		}
	}
}

func TestCanPlaceRejectsEdgeCrossing(t *testing.T) {
	g := NewGrid(8)

	cases := []struct{ x, y, w, h int }{
		{-1, 0, 1, 1},
		{0, -1, 1, 1},
		{7, 0, 2, 1},
		{0, 7, 1, 2},
		{7, 7, 2, 2},
		{0, 0, 9, 1},
		{-3, -3, 2, 2},
	}
	for _, tc := range cases {
		if CanPlace(g, tc.x, tc.y, tc.w, tc.h) {
			t.Errorf("%dx%d at (%d,%d) crosses the edge but was accepted", tc.w, tc.h, tc.x, tc.y)
		}
	}
}

func TestCanPlaceRejectsOverlap(t *testing.T) {
	g := NewGrid(8)
	house := catalog.Archetype{ID: catalog.WoodenHouse, Width: 1, Height: 1, Cost: 5, Population: 2}
	g.MarkOccupied(3, 3, 1, 1, NewBuilding(house, Cell{3, 3}, time.Now()))

	if CanPlace(g, 2, 2, 2, 2) {
		t.Errorf("2x2 at (2,2) overlaps (3,3)")
	}
	if CanPlace(g, 3, 3, 1, 1) {
		t.Errorf("1x1 at (3,3) overlaps itself")
	}
	if !CanPlace(g, 4, 4, 2, 2) {
		t.Errorf("2x2 at (4,4) is clear")
	}
	if !CanPlace(g, 1, 3, 2, 1) {
		t.Errorf("2x1 at (1,3) ends before (3,3)")
	}
}

func TestCanPlaceDoesNotMutate(t *testing.T) {
	g := NewGrid(8)
	for i := 0; i < 100; i++ {
		CanPlace(g, i%10-1, i%7, 2, 2)
	}
	if g.OccupiedCount() != 0 {
		t.Fatalf("validator mutated the grid")
	}
}

func TestClampAnchor(t *testing.T) {
	cases := []struct {
		x, y, w, h int
		want       Cell
	}{
		{7, 7, 2, 2, Cell{6, 6}},
		{-4, 3, 1, 1, Cell{0, 3}},
		{5, 9, 1, 3, Cell{5, 5}},
		{3, 3, 2, 2, Cell{3, 3}},
		{4, 4, 10, 10, Cell{0, 0}},
	}
	for _, tc := range cases {
		got := ClampAnchor(8, tc.x, tc.y, tc.w, tc.h)
		if got != tc.want {
			t.Errorf("clamp (%d,%d) %dx%d: expected %v, got %v", tc.x, tc.y, tc.w, tc.h, tc.want, got)
		}
	}
}
