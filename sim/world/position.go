package world

import "math"

// Position is an x,y grid coordinate
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Euclidean returns the straight-line distance between two positions.
func Euclidean(a, b Position) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Manhattan returns the 4-connected grid distance between two positions.
func Manhattan(a, b Position) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
