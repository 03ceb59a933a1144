// Package mission runs the deliberate/reactive control loop: A* plans,
// the reflex controller arbitrates each step, and the loop reconciles
// detours, storm avoidance, and replanning until the goal is reached or
// the mission fails.
package mission

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/redsand/roversim/sim/planner"
	"github.com/redsand/roversim/sim/reflex"
	"github.com/redsand/roversim/sim/rover"
	"github.com/redsand/roversim/sim/world"
)

// DefaultMaxSteps is the iteration ceiling guarding against livelock.
const DefaultMaxSteps = 1000

// EventKind tags a notable mission occurrence.
type EventKind string

const (
	EventRecharge        EventKind = "recharge"
	EventBacktrack       EventKind = "backtrack"
	EventCriticalBattery EventKind = "critical_battery"
	EventLowBattery      EventKind = "low_battery"
	EventStormDetected   EventKind = "storm_detected"
	EventStormAvoid      EventKind = "storm_avoid"
)

// Event records when and where something notable happened. Events are
// owned by the mission result, not by the environment or rover.
type Event struct {
	Step     int            `json:"step"`
	Kind     EventKind      `json:"kind"`
	Position world.Position `json:"position"`
}

// Snapshot is the per-step telemetry record streamed to observers.
type Snapshot struct {
	Step       int            `json:"step"`
	Position   world.Position `json:"position"`
	Battery    int            `json:"battery"`
	BatteryPct float64        `json:"battery_pct"`
	Daytime    bool           `json:"daytime"`
}

// StepObserver receives a snapshot after every rover state change.
type StepObserver func(Snapshot)

// Terminal failure reasons.
const (
	ReasonGoalReached = "goal_reached"
	ReasonNoPath      = "no_path"
	ReasonStranded    = "stranded"
	ReasonNoStation   = "no_station"
	ReasonStopped     = "stopped"
	ReasonStepBudget  = "step_budget"
)

// Result is the terminal mission outcome handed back to the caller.
type Result struct {
	Success        bool             `json:"success"`
	Reason         string           `json:"reason"`
	FinalPosition  world.Position   `json:"final_position"`
	FinalBattery   int              `json:"final_battery"`
	PathHistory    []world.Position `json:"path_history"`
	BatteryHistory []int            `json:"battery_history"`
	Events         []Event          `json:"events"`
	RechargeCount  int              `json:"recharge_count"`
	ReplanCount    int              `json:"replan_count"`
	BacktrackCount int              `json:"backtrack_count"`
	TotalDistance  float64          `json:"total_distance"`
	NodesExpanded  int              `json:"nodes_expanded"`
	Steps          int              `json:"steps"`
}

// Stranded reports whether the mission ended with the rover unable to
// meet the energy cost of a required detour.
func (r *Result) Stranded() bool {
	return r.Reason == ReasonStranded
}

// Runner drives one mission attempt. It exclusively owns the environment
// and rover for the duration of Run; nothing else may mutate them.
type Runner struct {
	Env       *world.Environment
	Rover     *rover.Rover
	Heuristic planner.Heuristic
	MaxSteps  int
	Logger    zerolog.Logger
	Observer  StepObserver

	planner  *planner.Planner
	executor *reflex.Executor

	events         []Event
	replanCount    int
	backtrackCount int
	nodesExpanded  int
}

// NewRunner creates a mission runner over env and rv using the named
// heuristic. The zero Logger discards output.
func NewRunner(env *world.Environment, rv *rover.Rover, h planner.Heuristic) *Runner {
	return &Runner{
		Env:       env,
		Rover:     rv,
		Heuristic: h,
		MaxSteps:  DefaultMaxSteps,
		Logger:    zerolog.Nop(),
	}
}

// detourStatus classifies the outcome of a cell-by-cell sub-path.
type detourStatus int

const (
	detourOK detourStatus = iota
	detourHazard
	detourStranded
	detourNoPath
)

// Run executes the mission from the rover's current position to goal.
// The initial plan is computed once; afterwards the loop replans whenever
// the path is exhausted, a hazard forces a backtrack, a storm blocks the
// next step, or a detour completes.
func (r *Runner) Run(goal world.Position) *Result {
	if r.MaxSteps <= 0 {
		r.MaxSteps = DefaultMaxSteps
	}
	r.planner = planner.New(r.Env)
	r.executor = &reflex.Executor{Rover: r.Rover, Env: r.Env}
	r.events = nil
	r.replanCount = 0
	r.backtrackCount = 0

	start := r.Rover.Position()
	r.Logger.Info().
		Str("heuristic", string(r.Heuristic)).
		Interface("start", start).
		Interface("goal", goal).
		Msg("mission start")

	path, err := r.planner.Plan(start, goal, r.Heuristic)
	r.nodesExpanded = r.planner.NodesExpanded()
	if err != nil {
		r.Logger.Warn().Err(err).Msg("initial planning failed")
		return r.finish(goal, ReasonNoPath)
	}
	r.Logger.Debug().Int("length", len(path)).Int("nodes_expanded", r.nodesExpanded).Msg("initial path found")

	cursor := 1
	iterations := 0

	for r.Rover.Position() != goal && iterations < r.MaxSteps {
		iterations++
		r.Env.UpdateStorms()

		if cursor >= len(path) {
			path, err = r.replan(goal)
			if err != nil || len(path) < 2 {
				return r.finish(goal, ReasonNoPath)
			}
			cursor = 1
			continue
		}

		next := path[cursor]
		decision := reflex.Decide(reflex.Sense(r.Rover, r.Env, next, true))

		switch decision.Action {
		case reflex.ActionMove:
			outcome, moveErr := r.executor.ExecuteMove(next)
			switch outcome {
			case reflex.MoveOK:
				cursor++
				r.afterStep()
			case reflex.MoveHazardBacktrack:
				r.backtrackCount++
				r.recordEvent(EventBacktrack)
				r.afterStep()
				r.Logger.Debug().Interface("position", r.Rover.Position()).Msg("hazard backtrack, replanning")
				path, err = r.replan(goal)
				if err != nil {
					return r.finish(goal, ReasonNoPath)
				}
				cursor = 1
			case reflex.MoveRejected:
				// Recoverable: retry via replan until the budget runs out.
				r.Logger.Debug().Err(moveErr).Msg("move rejected, replanning")
				path, err = r.replan(goal)
				if err != nil {
					return r.finish(goal, ReasonNoPath)
				}
				cursor = 1
			}

		case reflex.ActionRechargeOverride:
			if r.Rover.BatteryPercentage() < 20 {
				r.recordEvent(EventCriticalBattery)
			} else {
				r.recordEvent(EventLowBattery)
			}
			r.Logger.Info().
				Float64("battery_pct", r.Rover.BatteryPercentage()).
				Interface("station", decision.Target).
				Msg("battery override, heading to station")

			switch r.runDetour(decision.Target) {
			case detourStranded:
				return r.finish(goal, ReasonStranded)
			case detourNoPath:
				return r.finish(goal, ReasonNoPath)
			case detourOK:
				r.recordEvent(EventRecharge)
			case detourHazard:
				// Backtracked mid-detour; replan below and carry on.
			}
			path, err = r.replan(goal)
			if err != nil {
				return r.finish(goal, ReasonNoPath)
			}
			cursor = 1

		case reflex.ActionSeekShelter:
			r.recordEvent(EventStormDetected)
			r.Logger.Info().Interface("station", decision.Target).Msg("storm over rover, seeking shelter")

			switch r.runDetour(decision.Target) {
			case detourStranded:
				return r.finish(goal, ReasonStranded)
			case detourNoPath:
				return r.finish(goal, ReasonNoPath)
			}
			path, err = r.replan(goal)
			if err != nil {
				return r.finish(goal, ReasonNoPath)
			}
			cursor = 1

		case reflex.ActionAvoidStorm:
			r.recordEvent(EventStormAvoid)
			r.Logger.Debug().Interface("blocked", decision.Target).Msg("planned step is storm-covered, replanning")
			path, err = r.replan(goal)
			if err != nil {
				return r.finish(goal, ReasonNoPath)
			}
			cursor = 1

		case reflex.ActionStop:
			reason := ReasonStopped
			if r.Rover.BatteryPercentage() < 20 {
				// Critical battery with nowhere to recharge.
				reason = ReasonNoStation
			}
			r.Logger.Warn().Str("reason", reason).Msg("controller stopped the mission")
			return r.finish(goal, reason)
		}
	}

	if r.Rover.Position() == goal {
		return r.finish(goal, ReasonGoalReached)
	}
	return r.finish(goal, ReasonStepBudget)
}

// runDetour executes a cell-by-cell sub-path to target, re-checking for
// hazards after every step. A move the battery cannot cover strands the
// mission; a hazard backtracks and abandons the rest of the sub-path.
func (r *Runner) runDetour(target world.Position) detourStatus {
	sub, err := r.planner.Plan(r.Rover.Position(), target, r.Heuristic)
	if err != nil {
		return detourNoPath
	}

	for _, step := range sub[1:] {
		if err := r.Rover.AttemptMove(step, r.Env); err != nil {
			if errors.Is(err, rover.ErrMovementRejected) {
				r.Logger.Warn().Err(err).Msg("battery exhausted mid-detour, rover stranded")
				return detourStranded
			}
			return detourStranded
		}
		r.afterStep()

		pos := r.Rover.Position()
		if r.Env.IsHazardous(pos.X, pos.Y) {
			r.Rover.Backtrack()
			r.backtrackCount++
			r.recordEvent(EventBacktrack)
			r.afterStep()
			return detourHazard
		}
	}

	return detourOK
}

// replan computes a fresh path from the rover's current position.
func (r *Runner) replan(goal world.Position) ([]world.Position, error) {
	path, err := r.planner.Plan(r.Rover.Position(), goal, r.Heuristic)
	r.nodesExpanded += r.planner.NodesExpanded()
	if err != nil {
		r.Logger.Warn().Err(err).Interface("from", r.Rover.Position()).Msg("replanning failed")
		return nil, err
	}
	r.replanCount++
	return path, nil
}

// recordEvent appends an event at the rover's current step and position.
func (r *Runner) recordEvent(kind EventKind) {
	r.events = append(r.events, Event{
		Step:     r.Rover.StepCount(),
		Kind:     kind,
		Position: r.Rover.Position(),
	})
}

// afterStep streams a telemetry snapshot after a rover state change.
func (r *Runner) afterStep() {
	if r.Observer == nil {
		return
	}
	r.Observer(Snapshot{
		Step:       r.Rover.StepCount(),
		Position:   r.Rover.Position(),
		Battery:    r.Rover.Battery(),
		BatteryPct: r.Rover.BatteryPercentage(),
		Daytime:    r.Rover.Daytime(),
	})
}

func (r *Runner) finish(goal world.Position, reason string) *Result {
	success := r.Rover.Position() == goal
	if success {
		reason = ReasonGoalReached
	}

	res := &Result{
		Success:        success,
		Reason:         reason,
		FinalPosition:  r.Rover.Position(),
		FinalBattery:   r.Rover.Battery(),
		PathHistory:    r.Rover.PathHistory(),
		BatteryHistory: r.Rover.BatteryHistory(),
		Events:         r.events,
		RechargeCount:  r.Rover.RechargeCount(),
		ReplanCount:    r.replanCount,
		BacktrackCount: r.backtrackCount,
		TotalDistance:  r.Rover.TotalDistance(),
		NodesExpanded:  r.nodesExpanded,
		Steps:          r.Rover.StepCount(),
	}

	r.Logger.Info().
		Bool("success", res.Success).
		Str("reason", res.Reason).
		Int("steps", res.Steps).
		Int("recharges", res.RechargeCount).
		Int("replans", res.ReplanCount).
		Int("backtracks", res.BacktrackCount).
		Msg("mission finished")

	return res
}
