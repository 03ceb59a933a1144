// Package planner implements A* path planning over the world grid with
// five interchangeable heuristics.
package planner

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/redsand/roversim/sim/world"
)

// ErrNoPath is returned when the open set empties before the goal is
// reached.
var ErrNoPath = errors.New("no path to goal")

// Planner runs A* searches against a fixed environment. Planning is
// storm-agnostic: g-scores accumulate unadjusted movement costs, and the
// storm premium only applies during execution.
type Planner struct {
	env           *world.Environment
	nodesExpanded int
}

// New creates a planner for env.
func New(env *world.Environment) *Planner {
	return &Planner{env: env}
}

// NodesExpanded returns the number of nodes expanded by the last Plan
// call.
func (p *Planner) NodesExpanded() int {
	return p.nodesExpanded
}

// Plan searches for a path from start to goal using the named heuristic.
// The returned path includes both endpoints. Expansion order is
// deterministic: the open set is keyed on (f, insertion counter), so ties
// resolve by strictly increasing insertion order. Cells are processed at
// most once; stale duplicate open-set entries are skipped on pop.
func (p *Planner) Plan(start, goal world.Position, name Heuristic) ([]world.Position, error) {
	p.nodesExpanded = 0
	h := heuristicByName(name)

	open := &openSet{}
	heap.Init(open)

	counter := 0
	heap.Push(open, &openItem{f: h(p.env, start, goal), seq: counter, pos: start})

	closed := make(map[world.Position]struct{})
	cameFrom := make(map[world.Position]world.Position)
	gScore := map[world.Position]int{start: 0}

	for open.Len() > 0 {
		current := heap.Pop(open).(*openItem).pos

		if _, done := closed[current]; done {
			continue
		}

		p.nodesExpanded++

		if current == goal {
			return reconstructPath(cameFrom, current), nil
		}

		closed[current] = struct{}{}

		for _, neighbor := range p.env.Neighbors(current.X, current.Y) {
			if _, done := closed[neighbor]; done {
				continue
			}

			tentative := gScore[current] + p.env.MovementCost(neighbor.X, neighbor.Y)
			if prev, seen := gScore[neighbor]; seen && tentative >= prev {
				continue
			}

			cameFrom[neighbor] = current
			gScore[neighbor] = tentative

			counter++
			heap.Push(open, &openItem{
				f:   float64(tentative) + h(p.env, neighbor, goal),
				seq: counter,
				pos: neighbor,
			})
		}
	}

	return nil, fmt.Errorf("%w: (%d,%d) -> (%d,%d)", ErrNoPath, start.X, start.Y, goal.X, goal.Y)
}

// PathCost sums the movement cost of a path, excluding the start cell
// (costs are paid on entry).
func PathCost(env *world.Environment, path []world.Position) int {
	total := 0
	for _, pos := range path[1:] {
		total += env.MovementCost(pos.X, pos.Y)
	}
	return total
}

func reconstructPath(cameFrom map[world.Position]world.Position, current world.Position) []world.Position {
	path := []world.Position{current}
	for {
		prev, ok := cameFrom[current]
		if !ok {
			break
		}
		current = prev
		path = append(path, current)
	}
	// Reverse into start-to-goal order.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// openItem is an entry in the A* open set.
type openItem struct {
	f   float64
	seq int
	pos world.Position
}

// openSet is a min-heap on (f, seq).
type openSet []*openItem

func (s openSet) Len() int { return len(s) }

func (s openSet) Less(i, j int) bool {
	if s[i].f != s[j].f {
		return s[i].f < s[j].f
	}
	return s[i].seq < s[j].seq
}

func (s openSet) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

func (s *openSet) Push(x any) { *s = append(*s, x.(*openItem)) }

func (s *openSet) Pop() any {
	old := *s
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*s = old[:n-1]
	return item
}
