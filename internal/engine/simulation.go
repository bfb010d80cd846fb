// Simulation owns the grid, wallet, population and building list, and
// applies player commands and economic ticks to them.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/gridcity/internal/catalog"
	"github.com/talgya/gridcity/internal/economy"
	"github.com/talgya/gridcity/internal/world"
)

// Config holds the constants the host and the simulation agree on.
type Config struct {
	GridSize       int     // N for the N x N grid
	StartingMoney  int     // Wallet balance on start and after Reset
	IncomeInterval float64 // Seconds between income payouts
}

// DefaultConfig returns the standard 8x8 board with 100 starting money and a 10 second payout.
func DefaultConfig() Config {
	return Config{
		GridSize:       8,
		StartingMoney:  100,
		IncomeInterval: 10,
	}
}

// Validate checks that the config describes a playable board.
func (c Config) Validate() error {
	if c.GridSize < 1 {
		return fmt.Errorf("grid size must be at least 1, got %d", c.GridSize)
	}
	if !(c.IncomeInterval > 0) {
		return fmt.Errorf("income interval must be positive, got %v", c.IncomeInterval)
	}
	return nil
}

// Selection is the pending placement: the chosen archetype and, once the
// player has hovered, the clamped candidate anchor. It has no effect on
// state until committed.
type Selection struct {
	Archetype    catalog.Archetype `json:"archetype"`
	Candidate    world.Cell        `json:"candidate"`
	HasCandidate bool              `json:"has_candidate"`
}

// SimStats tracks cumulative totals since start or the last reset.
type SimStats struct {
	Placements   int `json:"placements"`
	Spent        int `json:"spent"`
	Payouts      int `json:"payouts"`
	IncomeEarned int `json:"income_earned"`
}

// Simulation holds the complete game state. It has no internal locking;
// concurrent hosts must serialize calls (see Engine.Do).
type Simulation struct {
	cfg     Config
	catalog *catalog.Catalog

	grid       *world.Grid
	wallet     economy.Wallet
	population int
	buildings  []*world.Building // placement order
	selection  *Selection
	clock      *Clock
	simSeconds float64

	Stats SimStats

	recent  []Event
	pending []Event

	now func() time.Time
}

// NewSimulation creates a fresh simulation over the given catalog.
func NewSimulation(cfg Config, cat *catalog.Catalog) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, errors.New("nil catalog")
	}
	return &Simulation{
		cfg:     cfg,
		catalog: cat,
		grid:    world.NewGrid(cfg.GridSize),
		wallet:  economy.NewWallet(cfg.StartingMoney),
		clock:   NewClock(cfg.IncomeInterval),
		now:     time.Now,
	}, nil
}

// SetClock replaces the wall clock used for timestamps.
func (s *Simulation) SetClock(now func() time.Time) {
	s.now = now
}

// ── Commands ─────────────────────────────────────────────────────────

// SelectArchetype starts a placement episode for the given archetype,
// replacing any previous selection. No candidate cell is set yet.
func (s *Simulation) SelectArchetype(id catalog.ID) error {
	a, err := s.catalog.Get(id)
	if err != nil {
		return fmt.Errorf("select: %w", err)
	}
	s.selection = &Selection{Archetype: a}
	return nil
}

// HoverCandidate moves the candidate anchor to (x, y), clamped so the whole
// footprint stays on the grid. It does nothing when no archetype is selected.
func (s *Simulation) HoverCandidate(x, y int) {
	if s.selection == nil {
		return
	}
	a := s.selection.Archetype
	s.selection.Candidate = world.ClampAnchor(s.cfg.GridSize, x, y, a.Width, a.Height)
	s.selection.HasCandidate = true
}

// CanCommit reports whether CommitPlacement would succeed right now.
func (s *Simulation) CanCommit() bool {
	return s.commitCheck() == nil
}

// commitCheck returns why the pending selection cannot be committed, or nil.
func (s *Simulation) commitCheck() error {
	sel := s.selection
	if sel == nil {
		return fmt.Errorf("%w: no archetype selected", ErrInvalidPlacement)
	}
	if !sel.HasCandidate {
		return fmt.Errorf("%w: no candidate cell", ErrInvalidPlacement)
	}
	a, at := sel.Archetype, sel.Candidate
	if !world.CanPlace(s.grid, at.X, at.Y, a.Width, a.Height) {
		return fmt.Errorf("%w: %s does not fit at %s", ErrInvalidPlacement, a.Name, at)
	}
	if !s.wallet.CanAfford(a.Cost) {
		return fmt.Errorf("%w: %s costs %d, wallet has %d", ErrInvalidPlacement, a.Name, a.Cost, s.wallet.Balance())
	}
	return nil
}

// CommitPlacement turns the pending selection into a placed building.
// Preconditions are re-checked here; on failure it returns ErrInvalidPlacement
// and nothing changes. On success the building is appended, its cells marked,
// the cost debited, population credited and the selection cleared.
func (s *Simulation) CommitPlacement() (*world.Building, error) {
	if err := s.commitCheck(); err != nil {
		return nil, err
	}

	a, at := s.selection.Archetype, s.selection.Candidate
	b := world.NewBuilding(a, at, s.now())

	s.buildings = append(s.buildings, b)
	s.grid.MarkOccupied(at.X, at.Y, a.Width, a.Height, b)
	s.wallet.Debit(a.Cost)
	s.population += a.Population
	s.selection = nil

	s.Stats.Placements++
	s.Stats.Spent += a.Cost
	s.record(EventPlacement, -a.Cost, b.ID.String(), fmt.Sprintf("%s built at %s", a.Name, at))

	slog.Debug("building placed",
		"archetype", a.ID,
		"anchor", at.String(),
		"cost", a.Cost,
		"money", s.wallet.Balance(),
		"population", s.population,
	)
	return b, nil
}

// CancelSelection discards the pending selection. Safe to call at any time.
func (s *Simulation) CancelSelection() {
	s.selection = nil
}

// Tick advances the economic clock by elapsed seconds. When the income
// interval is reached, every income-producing building pays out once and
// credited is the total paid. fired reports whether the interval elapsed.
func (s *Simulation) Tick(elapsed float64) (credited int, fired bool) {
	if elapsed > 0 {
		s.simSeconds += elapsed
	}
	if !s.clock.Advance(elapsed) {
		return 0, false
	}

	income := economy.IncomeFor(s.buildings)
	if income > 0 {
		s.wallet.Credit(income)
		s.Stats.Payouts++
		s.Stats.IncomeEarned += income
		s.record(EventPayout, income, "",
			fmt.Sprintf("%d buildings paid %d", economy.Producers(s.buildings), income))
		slog.Info("income paid", "amount", income, "money", s.wallet.Balance())
	}
	return income, true
}

// GrantMoney adjusts the wallet directly. Negative amounts are allowed.
func (s *Simulation) GrantMoney(amount int) {
	s.wallet.Credit(amount)
	s.record(EventGrant, amount, "", fmt.Sprintf("wallet adjusted by %d", amount))
}

// GrantPopulation adds residents without a building. Population never decreases.
func (s *Simulation) GrantPopulation(amount int) error {
	if amount < 0 {
		return fmt.Errorf("population grant must be non-negative, got %d", amount)
	}
	s.population += amount
	s.record(EventGrant, 0, "", fmt.Sprintf("population increased by %d", amount))
	return nil
}

// Reset returns the simulation to its starting state. The building list and
// the grid are cleared together.
func (s *Simulation) Reset() {
	s.buildings = nil
	s.grid.Clear()
	s.wallet = economy.NewWallet(s.cfg.StartingMoney)
	s.population = 0
	s.selection = nil
	s.clock.Reset()
	s.simSeconds = 0
	s.Stats = SimStats{}
	s.record(EventReset, 0, "", "city reset")
	slog.Info("simulation reset", "money", s.wallet.Balance())
}

// ── Queries ──────────────────────────────────────────────────────────

// Money returns the wallet balance.
func (s *Simulation) Money() int { return s.wallet.Balance() }

// Population returns the population counter.
func (s *Simulation) Population() int { return s.population }

// GridSize returns N.
func (s *Simulation) GridSize() int { return s.cfg.GridSize }

// Config returns the simulation's configuration.
func (s *Simulation) Config() Config { return s.cfg }

// Catalog returns the archetype catalog.
func (s *Simulation) Catalog() *catalog.Catalog { return s.catalog }

// Buildings returns the placed buildings in placement order.
func (s *Simulation) Buildings() []*world.Building {
	out := make([]*world.Building, len(s.buildings))
	copy(out, s.buildings)
	return out
}

// Occupant returns the building covering (x, y), or nil for an empty cell.
func (s *Simulation) Occupant(x, y int) (*world.Building, error) {
	return s.grid.Occupant(x, y)
}

// Selection returns the pending selection, if any.
func (s *Simulation) Selection() (Selection, bool) {
	if s.selection == nil {
		return Selection{}, false
	}
	return *s.selection, true
}

// IncomePerInterval returns what the next payout would credit.
func (s *Simulation) IncomePerInterval() int {
	return economy.IncomeFor(s.buildings)
}

// ClockElapsed returns seconds accumulated toward the next payout.
func (s *Simulation) ClockElapsed() float64 {
	return s.clock.Elapsed()
}

// SimSeconds returns the total simulated time since start or reset.
func (s *Simulation) SimSeconds() float64 {
	return s.simSeconds
}

// SimTime formats a simulated duration for display.
func SimTime(seconds float64) string {
	return time.Duration(seconds * float64(time.Second)).Round(time.Second).String()
}
