package world

import (
	"time"

	"github.com/google/uuid"

	"github.com/talgya/gridcity/internal/catalog"
)

// Building is a placed instance of an archetype. It is created once at
// commit time and never changes afterwards.
type Building struct {
	ID        uuid.UUID         `json:"id"`
	Archetype catalog.Archetype `json:"archetype"`
	Anchor    Cell              `json:"anchor"`    // Lower-left cell of the footprint
	PlacedAt  time.Time         `json:"placed_at"` // Informational only
}

// NewBuilding creates a building with a fresh ID.
func NewBuilding(a catalog.Archetype, anchor Cell, placedAt time.Time) *Building {
	return &Building{
		ID:        uuid.New(),
		Archetype: a,
		Anchor:    anchor,
		PlacedAt:  placedAt,
	}
}

// Footprint returns every cell the building covers.
func (b *Building) Footprint() []Cell {
	return FootprintCells(b.Anchor, b.Archetype.Width, b.Archetype.Height)
}

// Covers reports whether the building's footprint includes c.
func (b *Building) Covers(c Cell) bool {
	return c.X >= b.Anchor.X && c.X < b.Anchor.X+b.Archetype.Width &&
		c.Y >= b.Anchor.Y && c.Y < b.Anchor.Y+b.Archetype.Height
}
