package engine

import (
	"github.com/talgya/gridcity/internal/catalog"
	"github.com/talgya/gridcity/internal/world"
)

// BuildingView is the read-only summary of a placed building.
type BuildingView struct {
	ID        string     `json:"id"`
	Archetype catalog.ID `json:"archetype"`
	Anchor    world.Cell `json:"anchor"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
}

// SelectionView is the read-only summary of the pending selection.
type SelectionView struct {
	Archetype catalog.ID  `json:"archetype"`
	Candidate *world.Cell `json:"candidate,omitempty"`
	CanCommit bool        `json:"can_commit"`
}

// Snapshot is a point-in-time copy of everything a collaborator may display.
type Snapshot struct {
	Money             int            `json:"money"`
	Population        int            `json:"population"`
	GridSize          int            `json:"grid_size"`
	Buildings         []BuildingView `json:"buildings"`
	Selection         *SelectionView `json:"selection,omitempty"`
	IncomePerInterval int            `json:"income_per_interval"`
	IncomeInterval    float64        `json:"income_interval"`
	ClockElapsed      float64        `json:"clock_elapsed"`
	SimSeconds        float64        `json:"sim_seconds"`
	Stats             SimStats       `json:"stats"`
}

// Snapshot copies the current state.
func (s *Simulation) Snapshot() Snapshot {
	views := make([]BuildingView, 0, len(s.buildings))
	for _, b := range s.buildings {
		views = append(views, viewOf(b))
	}

	snap := Snapshot{
		Money:             s.wallet.Balance(),
		Population:        s.population,
		GridSize:          s.cfg.GridSize,
		Buildings:         views,
		IncomePerInterval: s.IncomePerInterval(),
		IncomeInterval:    s.clock.Interval(),
		ClockElapsed:      s.clock.Elapsed(),
		SimSeconds:        s.simSeconds,
		Stats:             s.Stats,
	}

	if sel := s.selection; sel != nil {
		view := &SelectionView{Archetype: sel.Archetype.ID, CanCommit: s.CanCommit()}
		if sel.HasCandidate {
			c := sel.Candidate
			view.Candidate = &c
		}
		snap.Selection = view
	}
	return snap
}

// OccupancyMap returns the grid as rows of building IDs ("" for empty),
// indexed [y][x].
func (s *Simulation) OccupancyMap() [][]string {
	n := s.cfg.GridSize
	rows := make([][]string, n)
	for y := 0; y < n; y++ {
		rows[y] = make([]string, n)
		for x := 0; x < n; x++ {
			if b, _ := s.grid.Occupant(x, y); b != nil {
				rows[y][x] = b.ID.String()
			}
		}
	}
	return rows
}

func viewOf(b *world.Building) BuildingView {
	return BuildingView{
		ID:        b.ID.String(),
		Archetype: b.Archetype.ID,
		Anchor:    b.Anchor,
		Width:     b.Archetype.Width,
		Height:    b.Archetype.Height,
	}
}
