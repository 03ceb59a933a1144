package world

import (
	"math/rand"
	"time"
)

// stormUpdateInterval is the number of UpdateStorms calls between storm
// movements.
const stormUpdateInterval = 5

// Environment is the 2D grid world: terrain, recharge stations, and the
// storm registry. It is created once per scenario and mutated by terrain
// edits and storm ticks; the mission loop is its sole writer during a run.
type Environment struct {
	width  int
	height int
	grid   [][]TerrainKind

	stations []Position

	stormsEnabled bool
	storms        []*Storm
	stepCounter   int

	rng *rand.Rand
}

// NewEnvironment creates a width×height environment of flat terrain.
// Storm drift randomness comes from rng so tests can seed it; a nil rng
// falls back to a time-seeded source.
func NewEnvironment(width, height int, stormsEnabled bool, rng *rand.Rand) *Environment {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	grid := make([][]TerrainKind, height)
	for y := range grid {
		grid[y] = make([]TerrainKind, width)
		for x := range grid[y] {
			grid[y][x] = Flat
		}
	}
	return &Environment{
		width:         width,
		height:        height,
		grid:          grid,
		stormsEnabled: stormsEnabled,
		rng:           rng,
	}
}

// Width returns the grid width.
func (e *Environment) Width() int { return e.width }

// Height returns the grid height.
func (e *Environment) Height() int { return e.height }

// StormsEnabled reports whether storm dynamics are active.
func (e *Environment) StormsEnabled() bool { return e.stormsEnabled }

// InRange reports whether (x, y) lies on the grid.
func (e *Environment) InRange(x, y int) bool {
	return x >= 0 && x < e.width && y >= 0 && y < e.height
}

// SetTerrain paints a cell. Out-of-range coordinates are a no-op. Painting
// a recharge station registers the coordinate in the station registry.
func (e *Environment) SetTerrain(x, y int, kind TerrainKind) {
	if !e.InRange(x, y) {
		return
	}
	prev := e.grid[y][x]
	e.grid[y][x] = kind
	if kind == RechargeStation && prev != RechargeStation {
		e.stations = append(e.stations, Position{X: x, Y: y})
	} else if kind != RechargeStation && prev == RechargeStation {
		e.unregisterStation(x, y)
	}
}

// unregisterStation keeps the station registry consistent when a station
// cell is painted over.
func (e *Environment) unregisterStation(x, y int) {
	for i, st := range e.stations {
		if st.X == x && st.Y == y {
			e.stations = append(e.stations[:i], e.stations[i+1:]...)
			return
		}
	}
}

// TerrainAt returns the terrain kind at (x, y) and whether the
// coordinate is on the grid.
func (e *Environment) TerrainAt(x, y int) (TerrainKind, bool) {
	if !e.InRange(x, y) {
		return "", false
	}
	return e.grid[y][x], true
}

// IsPassable reports whether the rover can occupy (x, y).
func (e *Environment) IsPassable(x, y int) bool {
	kind, ok := e.TerrainAt(x, y)
	return ok && kind != Rocky
}

// IsHazardous reports whether entering (x, y) triggers a reflex
// backtrack. Only radiation spots, sand traps, and cliffs qualify.
func (e *Environment) IsHazardous(x, y int) bool {
	kind, ok := e.TerrainAt(x, y)
	return ok && Hazardous(kind)
}

// MovementCost returns the battery cost of entering (x, y), or
// CostImpassable for rocky or out-of-range cells.
func (e *Environment) MovementCost(x, y int) int {
	kind, ok := e.TerrainAt(x, y)
	if !ok || kind == Rocky {
		return CostImpassable
	}
	return RawCost(kind)
}

// StormAdjustedCost returns the movement cost with the storm drain
// multiplier applied (truncated to an integer) when the cell is covered
// by an active storm. Recharge stations shelter the rover and never pay
// the storm premium.
func (e *Environment) StormAdjustedCost(x, y int) int {
	base := e.MovementCost(x, y)
	if base == CostImpassable {
		return base
	}
	kind, _ := e.TerrainAt(x, y)
	if kind == RechargeStation || !e.InStorm(x, y) {
		return base
	}
	return int(float64(base) * StormDrainMultiplier)
}

// Neighbors returns the passable 4-connected neighbors of (x, y). No
// diagonals. Order is fixed (S, N, E, W) so planning stays deterministic.
func (e *Environment) Neighbors(x, y int) []Position {
	dirs := [4][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
	neighbors := make([]Position, 0, 4)
	for _, d := range dirs {
		nx, ny := x+d[0], y+d[1]
		if e.IsPassable(nx, ny) {
			neighbors = append(neighbors, Position{X: nx, Y: ny})
		}
	}
	return neighbors
}

// Stations returns a copy of the registered recharge stations in
// registration order.
func (e *Environment) Stations() []Position {
	out := make([]Position, len(e.stations))
	copy(out, e.stations)
	return out
}

// NearestStation returns the recharge station closest to (x, y) by
// Euclidean distance. Ties go to the earliest-registered station. The
// second return is false when no station exists.
func (e *Environment) NearestStation(x, y int) (Position, bool) {
	if len(e.stations) == 0 {
		return Position{}, false
	}
	from := Position{X: x, Y: y}
	best := e.stations[0]
	bestDist := Euclidean(from, best)
	for _, st := range e.stations[1:] {
		if d := Euclidean(from, st); d < bestDist {
			best, bestDist = st, d
		}
	}
	return best, true
}

// AddStorm registers a storm. A zero direction vector is replaced with a
// random non-zero drift, matching how scenarios spawn unspecified storms.
func (e *Environment) AddStorm(s *Storm) {
	if s.dirX == 0 && s.dirY == 0 && s.speed != 0 {
		s.dirX = e.rng.Intn(3) - 1
		s.dirY = e.rng.Intn(3) - 1
		if s.dirX == 0 && s.dirY == 0 {
			s.dirX = 1
		}
	}
	e.storms = append(e.storms, s)
}

// ActiveStorms returns the storm list, or nil when storms are disabled.
func (e *Environment) ActiveStorms() []*Storm {
	if !e.stormsEnabled {
		return nil
	}
	return e.storms
}

// ClearStorms removes all storms and resets the movement cadence.
func (e *Environment) ClearStorms() {
	e.storms = nil
	e.stepCounter = 0
}

// UpdateStorms advances the storm cadence. Storms move only on every
// fifth call while enabled; other calls just tick the counter.
func (e *Environment) UpdateStorms() {
	if !e.stormsEnabled {
		return
	}
	e.stepCounter++
	if e.stepCounter >= stormUpdateInterval {
		e.stepCounter = 0
		for _, s := range e.storms {
			s.Move(e.width, e.height, e.rng)
		}
	}
}

// InStorm reports whether (x, y) is covered by any active storm.
func (e *Environment) InStorm(x, y int) bool {
	if !e.stormsEnabled {
		return false
	}
	for _, s := range e.storms {
		if s.Contains(x, y) {
			return true
		}
	}
	return false
}

// SafeFromStorm reports whether (x, y) is safe from storm effects.
// Recharge stations are always sheltered regardless of coverage.
func (e *Environment) SafeFromStorm(x, y int) bool {
	if kind, ok := e.TerrainAt(x, y); ok && kind == RechargeStation {
		return true
	}
	return !e.InStorm(x, y)
}
