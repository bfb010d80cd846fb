package api

import (
	"errors"
	"fmt"

	"github.com/talgya/gridcity/internal/catalog"
	"github.com/talgya/gridcity/internal/engine"
)

// Player command types, shared by the HTTP endpoints and websocket sessions.
const (
	CmdSelect = "select"
	CmdHover  = "hover"
	CmdCommit = "commit"
	CmdCancel = "cancel"
)

var errBadCommand = errors.New("bad command")

// Command is one player action.
type Command struct {
	Type string     `json:"type"`
	ID   catalog.ID `json:"id,omitempty"`
	X    int        `json:"x"`
	Y    int        `json:"y"`
}

// CommandResult reports the state a command left behind.
type CommandResult struct {
	Command    string                `json:"command"`
	Selection  *engine.SelectionView `json:"selection,omitempty"`
	Building   *engine.BuildingView  `json:"building,omitempty"`
	Money      int                   `json:"money"`
	Population int                   `json:"population"`
}

// Apply runs cmd against the simulation under the engine lock.
func (s *Server) Apply(cmd Command) (CommandResult, error) {
	res := CommandResult{Command: cmd.Type}
	err := s.Eng.Do(func(sim *engine.Simulation) error {
		switch cmd.Type {
		case CmdSelect:
			if err := sim.SelectArchetype(cmd.ID); err != nil {
				return err
			}
		case CmdHover:
			sim.HoverCandidate(cmd.X, cmd.Y)
		case CmdCommit:
			b, err := sim.CommitPlacement()
			if err != nil {
				return err
			}
			res.Building = &engine.BuildingView{
				ID:        b.ID.String(),
				Archetype: b.Archetype.ID,
				Anchor:    b.Anchor,
				Width:     b.Archetype.Width,
				Height:    b.Archetype.Height,
			}
		case CmdCancel:
			sim.CancelSelection()
		default:
			return fmt.Errorf("%w: unknown type %q", errBadCommand, cmd.Type)
		}

		snap := sim.Snapshot()
		res.Selection = snap.Selection
		res.Money = snap.Money
		res.Population = snap.Population
		return nil
	})
	return res, err
}
