package reflex

import (
	"github.com/redsand/roversim/sim/rover"
	"github.com/redsand/roversim/sim/world"
)

// MoveOutcome classifies the result of executing a move.
type MoveOutcome int

const (
	// MoveOK means the rover advanced and stands on safe ground.
	MoveOK MoveOutcome = iota
	// MoveHazardBacktrack means the rover entered a hazardous cell and
	// was immediately backtracked to its last safe position. The caller
	// should replan.
	MoveHazardBacktrack
	// MoveRejected means the move was refused outright (impassable or
	// not enough battery) and nothing changed.
	MoveRejected
)

// Executor carries out controller decisions against a rover/environment
// pair.
type Executor struct {
	Rover *rover.Rover
	Env   *world.Environment
}

// ExecuteMove performs a move and applies the post-hoc hazard check: if
// the entered cell is hazardous the rover backtracks on the spot. This is
// distinct from the pre-emptive storm check in Decide, which refuses the
// step before it happens.
func (e *Executor) ExecuteMove(target world.Position) (MoveOutcome, error) {
	if err := e.Rover.AttemptMove(target, e.Env); err != nil {
		return MoveRejected, err
	}

	pos := e.Rover.Position()
	if e.Env.IsHazardous(pos.X, pos.Y) {
		e.Rover.Backtrack()
		return MoveHazardBacktrack, nil
	}

	return MoveOK, nil
}
