package planner

import (
	"fmt"
	"math/rand"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/gridcity/internal/catalog"
	"github.com/talgya/gridcity/internal/world"
)

// Actions a Decision can carry.
const (
	ActionBuild = "build"
	ActionWait  = "wait"
)

// Decision is the planner's choice for one cycle.
type Decision struct {
	Action    string     `json:"action"`
	Archetype catalog.ID `json:"archetype,omitempty"`
	Anchor    world.Cell `json:"anchor"`
	Score     float64    `json:"score"`
	Rationale string     `json:"rationale"`
}

// Land is a fixed desirability field over grid cells, in [0, 1].
type Land struct {
	noise opensimplex.Noise
}

// NewLand creates a desirability field. Seed 0 picks a random seed.
func NewLand(seed int64) *Land {
	if seed == 0 {
		seed = rand.Int63()
	}
	return &Land{noise: opensimplex.NewNormalized(seed)}
}

// At returns the desirability of cell (x, y).
func (l *Land) At(x, y int) float64 {
	return octaveNoise(l.noise, float64(x), float64(y), 3, 0.15, 0.5)
}

func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// Decide picks the next building and where to put it. It never errors:
// when nothing can be built it returns a wait decision with the reason.
//
// Without income the planner prefers income producers so the wallet can
// refill. Otherwise it prefers the best population per cost. Within an
// archetype the anchor with the highest desirability wins.
func Decide(snap *CitySnapshot, land *Land) *Decision {
	health := Assess(snap)
	switch health.Phase {
	case PhaseSaturated:
		return &Decision{Action: ActionWait, Rationale: "no free space for any footprint"}
	case PhaseBroke:
		return &Decision{Action: ActionWait, Rationale: fmt.Sprintf("cannot afford anything with %d", snap.Status.Money)}
	}

	grid := rebuildGrid(snap.Grid)
	for _, arch := range rank(health.Affordable, health.HasIncome) {
		anchor, score, ok := bestAnchor(grid, land, arch)
		if !ok {
			continue
		}
		return &Decision{
			Action:    ActionBuild,
			Archetype: arch.ID,
			Anchor:    anchor,
			Score:     score,
			Rationale: rationale(arch, health),
		}
	}
	return &Decision{Action: ActionWait, Rationale: "no affordable archetype fits"}
}

// rank orders affordable archetypes by preference.
func rank(affordable []catalog.Archetype, hasIncome bool) []catalog.Archetype {
	out := make([]catalog.Archetype, len(affordable))
	copy(out, affordable)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !hasIncome && a.ProducesIncome() != b.ProducesIncome() {
			return a.ProducesIncome()
		}
		if ra, rb := perCost(a.Population, a.Cost), perCost(b.Population, b.Cost); ra != rb {
			return ra > rb
		}
		if ra, rb := perCost(a.Income, a.Cost), perCost(b.Income, b.Cost); ra != rb {
			return ra > rb
		}
		return a.Cost < b.Cost
	})
	return out
}

func perCost(yield, cost int) float64 {
	if cost <= 0 {
		return float64(yield)
	}
	return float64(yield) / float64(cost)
}

// bestAnchor scores every anchor where arch fits and returns the best one.
// Ties go to the first anchor in row-major order.
func bestAnchor(g *world.Grid, land *Land, arch catalog.Archetype) (world.Cell, float64, bool) {
	var best world.Cell
	bestScore := -1.0
	found := false

	n := g.Size()
	for y := 0; y+arch.Height <= n; y++ {
		for x := 0; x+arch.Width <= n; x++ {
			if !world.CanPlace(g, x, y, arch.Width, arch.Height) {
				continue
			}
			s := anchorScore(g, land, x, y, arch.Width, arch.Height)
			if s > bestScore {
				best, bestScore, found = world.Cell{X: x, Y: y}, s, true
			}
		}
	}
	return best, bestScore, found
}

// anchorScore is the mean land desirability under the footprint plus a
// small bonus per occupied neighbouring cell, so the city grows in clusters.
func anchorScore(g *world.Grid, land *Land, x, y, w, h int) float64 {
	total := 0.0
	for _, c := range world.FootprintCells(world.Cell{X: x, Y: y}, w, h) {
		total += land.At(c.X, c.Y)
	}
	score := total / float64(w*h)

	neighbours := 0
	for dy := -1; dy <= h; dy++ {
		for dx := -1; dx <= w; dx++ {
			inside := dx >= 0 && dx < w && dy >= 0 && dy < h
			if inside {
				continue
			}
			if b, err := g.Occupant(x+dx, y+dy); err == nil && b != nil {
				neighbours++
			}
		}
	}
	return score + 0.05*float64(neighbours)
}

// rebuildGrid projects the observed occupancy map onto a world.Grid so the
// planner validates placements exactly as the simulation does.
func rebuildGrid(data GridData) *world.Grid {
	g := world.NewGrid(data.Size)
	stand := make(map[string]*world.Building)
	for y, row := range data.Cells {
		for x, id := range row {
			if id == "" || !g.InBounds(x, y) {
				continue
			}
			b, ok := stand[id]
			if !ok {
				b = &world.Building{}
				stand[id] = b
			}
			g.MarkOccupied(x, y, 1, 1, b)
		}
	}
	return g
}

func rationale(arch catalog.Archetype, health *CityAssessment) string {
	switch {
	case health.Phase == PhaseBootstrap && arch.ProducesIncome():
		return fmt.Sprintf("no income yet, %s pays %d per interval", arch.Name, arch.Income)
	case arch.Population > 0:
		return fmt.Sprintf("%s adds %d population for %d", arch.Name, arch.Population, arch.Cost)
	default:
		return fmt.Sprintf("%s is the best affordable option", arch.Name)
	}
}
