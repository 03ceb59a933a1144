package planner

import (
	"math"

	"github.com/redsand/roversim/sim/world"
)

// Heuristic names one of the five fixed estimate strategies.
type Heuristic string

const (
	// Euclidean is the straight-line distance to the goal.
	Euclidean Heuristic = "euclidean"
	// Manhattan is |dx|+|dy|, matching 4-connected movement.
	Manhattan Heuristic = "manhattan"
	// WeightedEuclidean is 1.5× the straight-line distance. Intentionally
	// inadmissible; trades optimality for greedier, faster search.
	WeightedEuclidean Heuristic = "weighted_euclidean"
	// RiskAware adds a penalty for radiation spots near the query point.
	RiskAware Heuristic = "risk_aware"
	// TerrainCostAware scales the distance by the average raw terrain
	// cost of the surrounding 5×5 window.
	TerrainCostAware Heuristic = "terrain_cost_aware"
)

// Heuristics lists all strategies in their canonical comparison order.
var Heuristics = []Heuristic{Euclidean, Manhattan, WeightedEuclidean, RiskAware, TerrainCostAware}

// Known reports whether name is one of the five heuristics.
func Known(name Heuristic) bool {
	for _, h := range Heuristics {
		if h == name {
			return true
		}
	}
	return false
}

// Risk-aware tuning: penalty weight, exponential decay rate, and the
// scan radius for nearby radiation.
const (
	riskAlpha  = 5.0
	riskDecay  = 2.0
	riskRadius = 2

	terrainSampleRadius = 2

	weightedFactor = 1.5
)

type heuristicFunc func(env *world.Environment, pos, goal world.Position) float64

// heuristicByName resolves a heuristic name. Unknown names fall back to
// euclidean rather than failing.
func heuristicByName(name Heuristic) heuristicFunc {
	switch name {
	case Manhattan:
		return manhattanHeuristic
	case WeightedEuclidean:
		return weightedEuclideanHeuristic
	case RiskAware:
		return riskAwareHeuristic
	case TerrainCostAware:
		return terrainCostAwareHeuristic
	default:
		return euclideanHeuristic
	}
}

func euclideanHeuristic(_ *world.Environment, pos, goal world.Position) float64 {
	return world.Euclidean(pos, goal)
}

func manhattanHeuristic(_ *world.Environment, pos, goal world.Position) float64 {
	return float64(world.Manhattan(pos, goal))
}

func weightedEuclideanHeuristic(_ *world.Environment, pos, goal world.Position) float64 {
	return weightedFactor * world.Euclidean(pos, goal)
}

// riskAwareHeuristic penalizes positions near radiation spots. Each spot
// within the scan radius contributes exp(-distance/decay), so pressure
// falls off smoothly with distance.
func riskAwareHeuristic(env *world.Environment, pos, goal world.Position) float64 {
	base := world.Euclidean(pos, goal)

	hazardScore := 0.0
	for dx := -riskRadius; dx <= riskRadius; dx++ {
		for dy := -riskRadius; dy <= riskRadius; dy++ {
			kind, ok := env.TerrainAt(pos.X+dx, pos.Y+dy)
			if !ok || kind != world.RadiationSpot {
				continue
			}
			dist := math.Sqrt(float64(dx*dx + dy*dy))
			hazardScore += math.Exp(-dist / riskDecay)
		}
	}

	return base + riskAlpha*hazardScore
}

// terrainCostAwareHeuristic scales the straight-line distance by the mean
// raw movement cost of the in-bounds 5×5 window, steering the search
// toward cheap regions.
func terrainCostAwareHeuristic(env *world.Environment, pos, goal world.Position) float64 {
	base := world.Euclidean(pos, goal)

	total := 0.0
	count := 0
	for dx := -terrainSampleRadius; dx <= terrainSampleRadius; dx++ {
		for dy := -terrainSampleRadius; dy <= terrainSampleRadius; dy++ {
			kind, ok := env.TerrainAt(pos.X+dx, pos.Y+dy)
			if !ok {
				continue
			}
			total += float64(world.RawCost(kind))
			count++
		}
	}
	if count == 0 {
		count = 1
	}

	return base * (total / float64(count))
}
