// Package catalog provides the static registry of building archetypes.
// A catalog is populated once at startup and is read-only afterwards.
package catalog

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an archetype ID is not registered.
var ErrNotFound = errors.New("archetype not found")

// ID identifies an archetype.
type ID string

// Built-in archetype IDs.
const (
	WoodenHouse    ID = "wooden_house"
	ApartmentBlock ID = "apartment_block"
	Factory        ID = "factory"
)

// Archetype is an immutable building template.
type Archetype struct {
	ID         ID     `json:"id"`
	Name       string `json:"name"`
	Width      int    `json:"width"`  // Footprint width in cells (>= 1)
	Height     int    `json:"height"` // Footprint height in cells (>= 1)
	Cost       int    `json:"cost"`
	Population int    `json:"population"`       // Population added on placement
	Income     int    `json:"income,omitempty"` // Paid every income interval; 0 = not income-producing
}

// ProducesIncome reports whether the archetype pays out on the economic tick.
func (a Archetype) ProducesIncome() bool {
	return a.Income > 0
}

// Area returns the number of cells the footprint covers.
func (a Archetype) Area() int {
	return a.Width * a.Height
}

func (a Archetype) validate() error {
	switch {
	case a.ID == "":
		return errors.New("empty archetype id")
	case a.Width < 1 || a.Height < 1:
		return fmt.Errorf("archetype %s: footprint %dx%d must be at least 1x1", a.ID, a.Width, a.Height)
	case a.Cost < 0:
		return fmt.Errorf("archetype %s: negative cost %d", a.ID, a.Cost)
	case a.Population < 0:
		return fmt.Errorf("archetype %s: negative population yield %d", a.ID, a.Population)
	case a.Income < 0:
		return fmt.Errorf("archetype %s: negative income yield %d", a.ID, a.Income)
	}
	return nil
}

// Catalog holds archetypes keyed by ID, remembering registration order.
type Catalog struct {
	index map[ID]Archetype
	order []ID
}

// New builds a catalog from the given archetypes. IDs must be unique.
func New(archetypes ...Archetype) (*Catalog, error) {
	c := &Catalog{
		index: make(map[ID]Archetype, len(archetypes)),
		order: make([]ID, 0, len(archetypes)),
	}
	for _, a := range archetypes {
		if err := a.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.index[a.ID]; dup {
			return nil, fmt.Errorf("duplicate archetype id %q", a.ID)
		}
		c.index[a.ID] = a
		c.order = append(c.order, a.ID)
	}
	return c, nil
}

// Default returns the built-in catalog: a small house, an apartment block and a factory.
func Default() *Catalog {
	c, err := New(
		Archetype{ID: WoodenHouse, Name: "Wooden House", Width: 1, Height: 1, Cost: 5, Population: 2},
		Archetype{ID: ApartmentBlock, Name: "Apartment Block", Width: 2, Height: 2, Cost: 20, Population: 10},
		Archetype{ID: Factory, Name: "Factory", Width: 2, Height: 2, Cost: 30, Income: 10},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the archetype registered under id.
func (c *Catalog) Get(id ID) (Archetype, error) {
	a, ok := c.index[id]
	if !ok {
		return Archetype{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return a, nil
}

// All returns every archetype in registration order.
// Order is for listing only.
func (c *Catalog) All() []Archetype {
	out := make([]Archetype, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.index[id])
	}
	return out
}

// Len returns the number of registered archetypes.
func (c *Catalog) Len() int {
	return len(c.order)
}
