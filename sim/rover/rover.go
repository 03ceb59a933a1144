// Package rover holds the vehicle state machine: position, battery,
// movement history, and the solar day/night cycle.
package rover

import (
	"errors"
	"fmt"

	"github.com/redsand/roversim/sim/world"
)

// dayNightHalfCycle is the number of steps per day (and per night) when
// solar power management is enabled.
const dayNightHalfCycle = 10

// nightRechargeAmount is how much battery a station restores at night,
// when the panels are dark and only stored charge is available.
const nightRechargeAmount = 50

// ErrMovementRejected is returned when a move is refused outright: the
// target is impassable or the battery cannot cover its cost. Rejected
// moves have no side effects.
var ErrMovementRejected = errors.New("movement rejected")

// Rover tracks the vehicle through a mission attempt. All mutation goes
// through AttemptMove, Recharge, and Backtrack; histories are append-only
// and exposed as copies.
type Rover struct {
	position   world.Position
	battery    int
	maxBattery int

	pathHistory     []world.Position
	batteryHistory  []int
	daylightHistory []bool

	lastSafePosition world.Position
	totalDistance    float64
	rechargeCount    int

	solarEnabled bool
	stepCount    int
	isDaytime    bool
}

// New creates a rover at start with a full battery. When solarEnabled is
// true, recharging follows the 10-step day/night cycle.
func New(start world.Position, batteryCapacity int, solarEnabled bool) *Rover {
	return &Rover{
		position:         start,
		battery:          batteryCapacity,
		maxBattery:       batteryCapacity,
		pathHistory:      []world.Position{start},
		batteryHistory:   []int{batteryCapacity},
		daylightHistory:  []bool{true},
		lastSafePosition: start,
		solarEnabled:     solarEnabled,
		isDaytime:        true,
	}
}

// Position returns the current grid position.
func (r *Rover) Position() world.Position { return r.position }

// Battery returns the current battery level.
func (r *Rover) Battery() int { return r.battery }

// MaxBattery returns the battery capacity.
func (r *Rover) MaxBattery() int { return r.maxBattery }

// BatteryPercentage returns the battery level as a percentage of capacity.
func (r *Rover) BatteryPercentage() float64 {
	return float64(r.battery) / float64(r.maxBattery) * 100
}

// LastSafePosition returns the most recent non-hazardous cell visited.
func (r *Rover) LastSafePosition() world.Position { return r.lastSafePosition }

// StepCount returns the number of moves and backtracks taken so far.
func (r *Rover) StepCount() int { return r.stepCount }

// RechargeCount returns how many times the battery has been recharged.
func (r *Rover) RechargeCount() int { return r.rechargeCount }

// TotalDistance returns the Euclidean distance traveled.
func (r *Rover) TotalDistance() float64 { return r.totalDistance }

// SolarEnabled reports whether solar power management is active.
func (r *Rover) SolarEnabled() bool { return r.solarEnabled }

// Daytime reports whether it is currently day. With solar power disabled
// there is no cycle and it is always day.
func (r *Rover) Daytime() bool {
	if !r.solarEnabled {
		return true
	}
	return r.isDaytime
}

// IsDay computes day/night from the step count: 10 steps of day followed
// by 10 steps of night.
func (r *Rover) IsDay() bool {
	return r.stepCount%(dayNightHalfCycle*2) < dayNightHalfCycle
}

// PathHistory returns a copy of the positions visited, starting with the
// spawn position.
func (r *Rover) PathHistory() []world.Position {
	out := make([]world.Position, len(r.pathHistory))
	copy(out, r.pathHistory)
	return out
}

// BatteryHistory returns a copy of the battery level after each step.
// It is always the same length as PathHistory.
func (r *Rover) BatteryHistory() []int {
	out := make([]int, len(r.batteryHistory))
	copy(out, r.batteryHistory)
	return out
}

// DaylightHistory returns a copy of the day/night flag after each step.
func (r *Rover) DaylightHistory() []bool {
	out := make([]bool, len(r.daylightHistory))
	copy(out, r.daylightHistory)
	return out
}

// AttemptMove moves the rover to target, deducting the movement cost
// (storm-adjusted when storms are enabled). The move is rejected with no
// side effects when the target is impassable or costs more than the
// remaining battery. Entering a hazardous cell is legal; reacting to it
// is the reflex controller's job, so lastSafePosition only advances on
// non-hazardous targets. Arriving at a recharge station recharges
// automatically.
func (r *Rover) AttemptMove(target world.Position, env *world.Environment) error {
	var cost int
	if env.StormsEnabled() {
		cost = env.StormAdjustedCost(target.X, target.Y)
	} else {
		cost = env.MovementCost(target.X, target.Y)
	}

	if cost == world.CostImpassable {
		return fmt.Errorf("%w: (%d,%d) is impassable", ErrMovementRejected, target.X, target.Y)
	}
	if cost > r.battery {
		return fmt.Errorf("%w: cost %d exceeds battery %d", ErrMovementRejected, cost, r.battery)
	}

	if !env.IsHazardous(target.X, target.Y) {
		r.lastSafePosition = target
	}

	prev := r.position
	r.position = target
	r.battery -= cost
	r.advanceClock()

	if kind, ok := env.TerrainAt(target.X, target.Y); ok && kind == world.RechargeStation {
		r.Recharge()
	}

	r.appendHistory()
	r.totalDistance += world.Euclidean(prev, target)
	return nil
}

// Recharge restores battery at a station. Without solar power management
// the battery always fills completely. With it, a daytime recharge fills
// the battery while a nighttime recharge adds a fixed amount from stored
// charge, capped at capacity. The recharge counter increments either way.
func (r *Rover) Recharge() {
	if r.solarEnabled && !r.isDaytime {
		r.battery = min(r.battery+nightRechargeAmount, r.maxBattery)
	} else {
		r.battery = r.maxBattery
	}
	r.rechargeCount++
}

// Backtrack teleports the rover to its last safe position at zero battery
// cost. The step clock still advances and both histories record the
// unchanged battery level.
func (r *Rover) Backtrack() {
	r.position = r.lastSafePosition
	r.advanceClock()
	r.appendHistory()
}

// Reset returns the rover to its initial state at start.
func (r *Rover) Reset(start world.Position) {
	r.position = start
	r.battery = r.maxBattery
	r.pathHistory = []world.Position{start}
	r.batteryHistory = []int{r.maxBattery}
	r.daylightHistory = []bool{true}
	r.lastSafePosition = start
	r.totalDistance = 0
	r.rechargeCount = 0
	r.stepCount = 0
	r.isDaytime = true
}

// Stats is a summary of the rover's state for reporting.
type Stats struct {
	FinalPosition     world.Position `json:"final_position"`
	FinalBattery      int            `json:"final_battery"`
	BatteryPercentage float64        `json:"battery_percentage"`
	PathLength        int            `json:"path_length"`
	DistanceTraveled  float64        `json:"distance_traveled"`
	RechargeCount     int            `json:"recharge_count"`
}

// Stats returns a snapshot of the rover's vital statistics.
func (r *Rover) Stats() Stats {
	return Stats{
		FinalPosition:     r.position,
		FinalBattery:      r.battery,
		BatteryPercentage: r.BatteryPercentage(),
		PathLength:        len(r.pathHistory),
		DistanceTraveled:  r.totalDistance,
		RechargeCount:     r.rechargeCount,
	}
}

func (r *Rover) advanceClock() {
	r.stepCount++
	if r.solarEnabled {
		r.isDaytime = r.IsDay()
	}
}

func (r *Rover) appendHistory() {
	r.pathHistory = append(r.pathHistory, r.position)
	r.batteryHistory = append(r.batteryHistory, r.battery)
	r.daylightHistory = append(r.daylightHistory, r.Daytime())
}
