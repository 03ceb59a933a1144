// Package reflex implements the rule-based reactive controller. Decisions
// are a pure function of a percept snapshot, evaluated as an ordered rule
// list where the first matching rule wins.
package reflex

import (
	"github.com/redsand/roversim/sim/rover"
	"github.com/redsand/roversim/sim/world"
)

// Action is the tagged decision variant produced by the controller.
type Action string

const (
	// ActionSeekShelter sends the rover to the nearest station because a
	// storm covers its current, unsheltered cell.
	ActionSeekShelter Action = "seek_shelter"
	// ActionRechargeOverride interrupts the plan to reach a station on
	// low battery.
	ActionRechargeOverride Action = "recharge_override"
	// ActionAvoidStorm refuses a planned step into storm-covered ground;
	// the caller should wait or replan.
	ActionAvoidStorm Action = "avoid_storm"
	// ActionMove takes the planned step.
	ActionMove Action = "move"
	// ActionStop halts the mission.
	ActionStop Action = "stop"
)

// Thresholds for the battery rules, in percent of capacity.
const (
	criticalBatteryPct = 20.0
	lowBatteryPct      = 25.0
	nearbyStationDist  = 2.0
)

// NextCell describes the planned next step as perceived at decision time.
type NextCell struct {
	Valid    bool
	Position world.Position
	Passable bool
	InStorm  bool
	Station  bool
}

// Percepts is everything the controller may consult: the rover's own
// state plus what it senses about its cell, the nearest station, and the
// proposed next step.
type Percepts struct {
	Position        world.Position
	BatteryPct      float64
	Hazardous       bool
	InStorm         bool
	StormSafe       bool
	HasStation      bool
	NearestStation  world.Position
	StationDistance float64
	Next            NextCell
}

// Sense builds a percept snapshot for the rover's current state and the
// proposed next cell. hasNext is false when the plan is exhausted.
func Sense(r *rover.Rover, env *world.Environment, next world.Position, hasNext bool) Percepts {
	pos := r.Position()
	p := Percepts{
		Position:   pos,
		BatteryPct: r.BatteryPercentage(),
		Hazardous:  env.IsHazardous(pos.X, pos.Y),
		InStorm:    env.InStorm(pos.X, pos.Y),
		StormSafe:  env.SafeFromStorm(pos.X, pos.Y),
	}

	if station, ok := env.NearestStation(pos.X, pos.Y); ok {
		p.HasStation = true
		p.NearestStation = station
		p.StationDistance = world.Euclidean(pos, station)
	}

	if hasNext {
		kind, _ := env.TerrainAt(next.X, next.Y)
		p.Next = NextCell{
			Valid:    true,
			Position: next,
			Passable: env.IsPassable(next.X, next.Y),
			InStorm:  env.InStorm(next.X, next.Y),
			Station:  kind == world.RechargeStation,
		}
	}

	return p
}

// Decision is the controller's output: an action and, for detour actions,
// the cell to head for.
type Decision struct {
	Action Action
	Target world.Position
}

// Decide evaluates the rule list top-down and returns the first match:
//
//  1. storm over an unsheltered rover -> seek shelter at the nearest
//     station (skipped when no station exists)
//  2. critical battery (<20%) -> recharge override, or stop without a
//     station
//  3. low battery (20-25%) with a station within 2 cells -> recharge
//     override
//  4. planned step into storm-covered, non-station ground -> avoid storm
//  5. planned step passable -> move
//  6. otherwise -> stop
//
// Hazardous-terrain reaction is deliberately absent here: it is a
// post-move check in the executor, not a pre-move rule.
func Decide(p Percepts) Decision {
	if p.InStorm && !p.StormSafe && p.HasStation {
		return Decision{Action: ActionSeekShelter, Target: p.NearestStation}
	}

	if p.BatteryPct < criticalBatteryPct {
		if p.HasStation {
			return Decision{Action: ActionRechargeOverride, Target: p.NearestStation}
		}
		return Decision{Action: ActionStop}
	}

	if p.BatteryPct >= criticalBatteryPct && p.BatteryPct <= lowBatteryPct &&
		p.HasStation && p.StationDistance <= nearbyStationDist {
		return Decision{Action: ActionRechargeOverride, Target: p.NearestStation}
	}

	if p.Next.Valid && p.Next.InStorm && !p.Next.Station {
		return Decision{Action: ActionAvoidStorm, Target: p.Next.Position}
	}

	if p.Next.Valid && p.Next.Passable {
		return Decision{Action: ActionMove, Target: p.Next.Position}
	}

	return Decision{Action: ActionStop}
}
