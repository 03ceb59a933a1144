// Command scenariocheck prints quick, human-readable diagnostics about
// scenario files in the project's scenarios directory. It validates each
// file, summarizes dimensions, battery settings, stations and storms, and
// dry-runs the planner to flag goals the rover cannot reach.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/redsand/roversim/sim/planner"
	"github.com/redsand/roversim/sim/scenario"
	"github.com/redsand/roversim/sim/world"
)

func main() {
	dir := flag.String("dir", "scenarios", "directory containing scenario files")
	flag.Parse()

	entries, err := os.ReadDir(*dir)
	if err != nil {
		fmt.Printf("Error reading directory: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		fmt.Printf("\n=== Analyzing %s ===\n", entry.Name())
		if !checkScenario(filepath.Join(*dir, entry.Name())) {
			failed++
		}
	}

	if failed > 0 {
		fmt.Printf("\n%d scenario(s) failed checks\n", failed)
		os.Exit(1)
	}
}

func checkScenario(path string) bool {
	sc, err := scenario.Load(path)
	if err != nil {
		fmt.Printf("INVALID: %v\n", err)
		return false
	}

	fmt.Printf("Name: %s\n", sc.Name)
	fmt.Printf("Grid: %d x %d\n", sc.Width, sc.Height)
	fmt.Printf("Battery: %d (solar: %t)\n", sc.BatteryCapacity, sc.SolarPower)
	fmt.Printf("Start: (%d,%d)  Goal: (%d,%d)\n", sc.Start.X, sc.Start.Y, sc.Goal.X, sc.Goal.Y)
	fmt.Printf("Storms: enabled=%t configured=%d\n", sc.StormsEnabled, len(sc.Storms))

	env, _, err := sc.Build()
	if err != nil {
		fmt.Printf("BUILD FAILED: %v\n", err)
		return false
	}

	histogram := map[world.TerrainKind]int{}
	for y := 0; y < env.Height(); y++ {
		for x := 0; x < env.Width(); x++ {
			kind, _ := env.TerrainAt(x, y)
			histogram[kind]++
		}
	}
	fmt.Printf("Terrain:")
	for _, kind := range world.Kinds() {
		if n := histogram[kind]; n > 0 {
			fmt.Printf(" %s=%d", kind, n)
		}
	}
	fmt.Println()

	stations := env.Stations()
	fmt.Printf("Recharge stations: %d\n", len(stations))
	if len(stations) == 0 && !sc.SolarPower {
		fmt.Printf("WARNING: no stations and no solar power, a drained battery strands the rover\n")
	}

	// Dry-run the planner so broken layouts surface before a mission does.
	p := planner.New(env)
	path2, err := p.Plan(sc.Start, sc.Goal, sc.PlannerHeuristic())
	if err != nil {
		fmt.Printf("WARNING: goal is unreachable from start: %v\n", err)
		return false
	}
	cost := planner.PathCost(env, path2)
	fmt.Printf("Planned route: %d cells, cost %d (%s)\n", len(path2), cost, sc.PlannerHeuristic())

	if cost > sc.BatteryCapacity && len(stations) == 0 && !sc.SolarPower {
		fmt.Printf("WARNING: route cost %d exceeds battery %d with no way to recharge\n", cost, sc.BatteryCapacity)
	}

	return true
}
