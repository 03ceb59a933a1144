package world

import "math/rand"

// StormDrainMultiplier is the battery-cost factor applied to cells
// covered by an active storm.
const StormDrainMultiplier = 1.25

// Storm is a moving circular hazard. It drifts across the grid every
// cadence tick and bounces off the boundaries instead of leaving.
type Storm struct {
	cx, cy   float64
	radius   int
	dirX     int
	dirY     int
	speed    int
	affected map[Position]struct{}
}

// NewStorm creates a storm centered at (cx, cy) with the given radius,
// integer direction vector, and speed in cells per tick.
func NewStorm(cx, cy float64, radius, dirX, dirY, speed int) *Storm {
	if radius < 0 {
		radius = 0
	}
	s := &Storm{
		cx:     cx,
		cy:     cy,
		radius: radius,
		dirX:   clampDir(dirX),
		dirY:   clampDir(dirY),
		speed:  speed,
	}
	s.recomputeAffected()
	return s
}

// Center returns the storm center truncated to grid coordinates.
func (s *Storm) Center() Position {
	return Position{X: int(s.cx), Y: int(s.cy)}
}

// Radius returns the storm radius in cells.
func (s *Storm) Radius() int {
	return s.radius
}

// Direction returns the current integer drift vector.
func (s *Storm) Direction() (int, int) {
	return s.dirX, s.dirY
}

// Contains reports whether (x, y) is inside the storm's footprint.
func (s *Storm) Contains(x, y int) bool {
	_, ok := s.affected[Position{X: x, Y: y}]
	return ok
}

// AffectedCells returns a copy of the storm's current footprint.
func (s *Storm) AffectedCells() []Position {
	cells := make([]Position, 0, len(s.affected))
	for p := range s.affected {
		cells = append(cells, p)
	}
	return cells
}

// Move advances the storm one tick within a width×height grid. When the
// new center comes within radius of a boundary the movement on that axis
// reverses, and with probability 0.3 the perpendicular axis picks up a
// random drift of -1, 0, or +1. The center is then clamped so the whole
// footprint stays on the grid.
func (s *Storm) Move(width, height int, rng *rand.Rand) {
	s.cx += float64(s.dirX * s.speed)
	s.cy += float64(s.dirY * s.speed)

	r := float64(s.radius)
	if s.cx <= r || s.cx >= float64(width)-r {
		s.dirX = -s.dirX
		if rng.Float64() > 0.7 {
			s.dirY = clampDir(s.dirY + rng.Intn(3) - 1)
		}
	}
	if s.cy <= r || s.cy >= float64(height)-r {
		s.dirY = -s.dirY
		if rng.Float64() > 0.7 {
			s.dirX = clampDir(s.dirX + rng.Intn(3) - 1)
		}
	}

	s.cx = clampFloat(s.cx, r, float64(width)-r-1)
	s.cy = clampFloat(s.cy, r, float64(height)-r-1)

	s.recomputeAffected()
}

// recomputeAffected rebuilds the footprint from the current center.
func (s *Storm) recomputeAffected() {
	cells := make(map[Position]struct{})
	cx, cy := int(s.cx), int(s.cy)
	for dx := -s.radius; dx <= s.radius; dx++ {
		for dy := -s.radius; dy <= s.radius; dy++ {
			if dx*dx+dy*dy <= s.radius*s.radius {
				cells[Position{X: cx + dx, Y: cy + dy}] = struct{}{}
			}
		}
	}
	s.affected = cells
}

func clampDir(d int) int {
	if d < -1 {
		return -1
	}
	if d > 1 {
		return 1
	}
	return d
}

func clampFloat(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
