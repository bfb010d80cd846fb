package engine

import (
	"errors"

	"github.com/talgya/gridcity/internal/catalog"
	"github.com/talgya/gridcity/internal/world"
)

// Error kinds surfaced by the simulation.
//
// ErrInvalidPlacement is the normal "click rejected" outcome and is never fatal.
// ErrNotFound and ErrOutOfBounds mean the host built a bad id or coordinate.
var (
	ErrInvalidPlacement = errors.New("invalid placement")
	ErrNotFound         = catalog.ErrNotFound
	ErrOutOfBounds      = world.ErrOutOfBounds
)
