package planner

import "github.com/redsand/roversim/sim/world"

// Report summarizes one heuristic's performance on a planning problem.
type Report struct {
	Heuristic     Heuristic        `json:"heuristic"`
	Found         bool             `json:"found"`
	Path          []world.Position `json:"path,omitempty"`
	PathLength    int              `json:"path_length"`
	PathCost      int              `json:"path_cost"`
	NodesExpanded int              `json:"nodes_expanded"`
}

// CompareHeuristics runs all five heuristics on the same start/goal pair
// and reports path length, cost, and search effort for each.
func CompareHeuristics(env *world.Environment, start, goal world.Position) []Report {
	p := New(env)
	reports := make([]Report, 0, len(Heuristics))

	for _, h := range Heuristics {
		path, err := p.Plan(start, goal, h)
		report := Report{
			Heuristic:     h,
			NodesExpanded: p.NodesExpanded(),
		}
		if err == nil {
			report.Found = true
			report.Path = path
			report.PathLength = len(path)
			report.PathCost = PathCost(env, path)
		}
		reports = append(reports, report)
	}

	return reports
}
