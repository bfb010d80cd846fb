package planner

import "github.com/talgya/gridcity/internal/catalog"

// Phases of a city's development, from the planner's point of view.
const (
	PhaseBootstrap = "BOOTSTRAP" // no income yet
	PhaseGrowing   = "GROWING"
	PhaseBroke     = "BROKE"     // nothing in the catalog is affordable
	PhaseSaturated = "SATURATED" // the smallest footprint no longer fits anywhere
)

// CityAssessment holds derived signals computed from a CitySnapshot.
// Runs before Decide and is deterministic.
type CityAssessment struct {
	FreeCells  int
	Occupancy  float64 // fraction of cells covered
	HasIncome  bool
	Affordable []catalog.Archetype
	Phase      string
}

// Assess computes a CityAssessment from the snapshot.
func Assess(snap *CitySnapshot) *CityAssessment {
	a := &CityAssessment{HasIncome: snap.Status.IncomePerInterval > 0}

	n := snap.Grid.Size
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if !snap.Grid.Occupied(x, y) {
				a.FreeCells++
			}
		}
	}
	if n > 0 {
		a.Occupancy = 1 - float64(a.FreeCells)/float64(n*n)
	}

	minArea := 0
	for _, arch := range snap.Catalog {
		if arch.Cost <= snap.Status.Money {
			a.Affordable = append(a.Affordable, arch)
		}
		if minArea == 0 || arch.Area() < minArea {
			minArea = arch.Area()
		}
	}

	switch {
	case a.FreeCells == 0 || a.FreeCells < minArea:
		a.Phase = PhaseSaturated
	case len(a.Affordable) == 0:
		a.Phase = PhaseBroke
	case !a.HasIncome:
		a.Phase = PhaseBootstrap
	default:
		a.Phase = PhaseGrowing
	}
	return a
}
