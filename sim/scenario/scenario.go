// Package scenario defines the mission setup format: grid layout, rover
// loadout, storms, and planner selection, loaded from JSON files.
package scenario

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/redsand/roversim/sim/planner"
	"github.com/redsand/roversim/sim/rover"
	"github.com/redsand/roversim/sim/world"
)

// Grid size limits for scenario validation.
const (
	MinGridSize = 2
	MaxGridSize = 200
)

// layoutLegend maps layout characters to terrain kinds. '.' keeps flat
// terrain readable in hand-written files.
var layoutLegend = map[byte]world.TerrainKind{
	'.': world.Flat,
	'~': world.Sandy,
	'T': world.SandTrap,
	'X': world.RadiationSpot,
	'C': world.Cliff,
	'#': world.Rocky,
	'S': world.RechargeStation,
}

// StormSpec places one storm on the grid. A zero direction with nonzero
// speed gets a random drift at build time.
type StormSpec struct {
	X      float64 `json:"x" mapstructure:"x"`
	Y      float64 `json:"y" mapstructure:"y"`
	Radius int     `json:"radius" mapstructure:"radius"`
	DirX   int     `json:"dir_x" mapstructure:"dir_x"`
	DirY   int     `json:"dir_y" mapstructure:"dir_y"`
	Speed  int     `json:"speed" mapstructure:"speed"`
}

// GenerateSpec requests procedural terrain instead of an explicit layout.
type GenerateSpec struct {
	// Frequency scales the noise sampling; higher values produce smaller
	// terrain features.
	Frequency float64 `json:"frequency" mapstructure:"frequency"`
	// StationSpacing places a recharge station every N cells along both
	// axes. Zero disables station placement.
	StationSpacing int `json:"station_spacing" mapstructure:"station_spacing"`
}

// Scenario is the complete mission setup.
type Scenario struct {
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description" mapstructure:"description"`

	Width  int `json:"width" mapstructure:"width"`
	Height int `json:"height" mapstructure:"height"`

	// Layout paints the grid row by row using the legend characters.
	// Empty with no Generate spec means all-flat terrain.
	Layout   []string      `json:"layout,omitempty" mapstructure:"layout"`
	Generate *GenerateSpec `json:"generate,omitempty" mapstructure:"generate"`

	Start world.Position `json:"start" mapstructure:"start"`
	Goal  world.Position `json:"goal" mapstructure:"goal"`

	BatteryCapacity int  `json:"battery_capacity" mapstructure:"battery_capacity"`
	SolarPower      bool `json:"solar_power" mapstructure:"solar_power"`

	StormsEnabled bool        `json:"storms_enabled" mapstructure:"storms_enabled"`
	Storms        []StormSpec `json:"storms,omitempty" mapstructure:"storms"`

	Heuristic string `json:"heuristic" mapstructure:"heuristic"`
	MaxSteps  int    `json:"max_steps" mapstructure:"max_steps"`
	Seed      int64  `json:"seed" mapstructure:"seed"`
}

// Validate checks a scenario for correctness and runnability.
func Validate(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("scenario validation: name is required")
	}
	if s.Width < MinGridSize || s.Width > MaxGridSize {
		return fmt.Errorf("scenario validation: width must be between %d and %d, got %d", MinGridSize, MaxGridSize, s.Width)
	}
	if s.Height < MinGridSize || s.Height > MaxGridSize {
		return fmt.Errorf("scenario validation: height must be between %d and %d, got %d", MinGridSize, MaxGridSize, s.Height)
	}
	if s.BatteryCapacity <= 0 {
		return fmt.Errorf("scenario validation: battery_capacity must be positive, got %d", s.BatteryCapacity)
	}

	if len(s.Layout) > 0 && s.Generate != nil {
		return fmt.Errorf("scenario validation: layout and generate are mutually exclusive")
	}

	if len(s.Layout) > 0 {
		if len(s.Layout) != s.Height {
			return fmt.Errorf("scenario validation: layout must have %d rows to match height, got %d", s.Height, len(s.Layout))
		}
		for i, row := range s.Layout {
			if len(row) != s.Width {
				return fmt.Errorf("scenario validation: row %d must have %d characters to match width, got %d", i+1, s.Width, len(row))
			}
			for j := 0; j < len(row); j++ {
				if _, ok := layoutLegend[row[j]]; !ok {
					return fmt.Errorf("scenario validation: invalid character '%c' at row %d, col %d", row[j], i+1, j+1)
				}
			}
		}
	}

	if s.Generate != nil {
		if s.Generate.Frequency <= 0 {
			return fmt.Errorf("scenario validation: generate.frequency must be positive, got %f", s.Generate.Frequency)
		}
		if s.Generate.StationSpacing < 0 {
			return fmt.Errorf("scenario validation: generate.station_spacing must not be negative, got %d", s.Generate.StationSpacing)
		}
	}

	inRange := func(p world.Position) bool {
		return p.X >= 0 && p.X < s.Width && p.Y >= 0 && p.Y < s.Height
	}
	if !inRange(s.Start) {
		return fmt.Errorf("scenario validation: start (%d,%d) is outside the %dx%d grid", s.Start.X, s.Start.Y, s.Width, s.Height)
	}
	if !inRange(s.Goal) {
		return fmt.Errorf("scenario validation: goal (%d,%d) is outside the %dx%d grid", s.Goal.X, s.Goal.Y, s.Width, s.Height)
	}
	if len(s.Layout) > 0 {
		if s.Layout[s.Start.Y][s.Start.X] == '#' {
			return fmt.Errorf("scenario validation: start (%d,%d) is on impassable terrain", s.Start.X, s.Start.Y)
		}
		if s.Layout[s.Goal.Y][s.Goal.X] == '#' {
			return fmt.Errorf("scenario validation: goal (%d,%d) is on impassable terrain", s.Goal.X, s.Goal.Y)
		}
	}

	if s.Heuristic != "" && !planner.Known(planner.Heuristic(s.Heuristic)) {
		return fmt.Errorf("scenario validation: unknown heuristic '%s'", s.Heuristic)
	}

	for i, storm := range s.Storms {
		if storm.Radius < 0 {
			return fmt.Errorf("scenario validation: storm %d radius must not be negative, got %d", i+1, storm.Radius)
		}
		if storm.X < 0 || storm.X >= float64(s.Width) || storm.Y < 0 || storm.Y >= float64(s.Height) {
			return fmt.Errorf("scenario validation: storm %d center (%.1f,%.1f) is outside the grid", i+1, storm.X, storm.Y)
		}
	}

	if s.MaxSteps < 0 {
		return fmt.Errorf("scenario validation: max_steps must not be negative, got %d", s.MaxSteps)
	}

	return nil
}

// Build materializes the scenario into an environment and a rover parked
// at the start cell. The seed drives storm drift and terrain generation;
// a zero seed leaves the environment time-seeded.
func (s *Scenario) Build() (*world.Environment, *rover.Rover, error) {
	if err := Validate(s); err != nil {
		return nil, nil, err
	}

	var rng *rand.Rand
	if s.Seed != 0 {
		rng = rand.New(rand.NewSource(s.Seed))
	}

	env := world.NewEnvironment(s.Width, s.Height, s.StormsEnabled, rng)

	switch {
	case len(s.Layout) > 0:
		for y, row := range s.Layout {
			for x := 0; x < len(row); x++ {
				if kind := layoutLegend[row[x]]; kind != world.Flat {
					env.SetTerrain(x, y, kind)
				}
			}
		}
	case s.Generate != nil:
		generateTerrain(env, s.Generate, s.Seed)
	}

	// The rover has to be able to leave the driveway.
	if !env.IsPassable(s.Start.X, s.Start.Y) {
		env.SetTerrain(s.Start.X, s.Start.Y, world.Flat)
	}
	if !env.IsPassable(s.Goal.X, s.Goal.Y) {
		env.SetTerrain(s.Goal.X, s.Goal.Y, world.Flat)
	}

	for _, spec := range s.Storms {
		env.AddStorm(world.NewStorm(spec.X, spec.Y, spec.Radius, spec.DirX, spec.DirY, spec.Speed))
	}

	rv := rover.New(s.Start, s.BatteryCapacity, s.SolarPower)
	return env, rv, nil
}

// PlannerHeuristic returns the scenario's heuristic, defaulting to
// euclidean when unset.
func (s *Scenario) PlannerHeuristic() planner.Heuristic {
	if s.Heuristic == "" {
		return planner.Euclidean
	}
	return planner.Heuristic(s.Heuristic)
}

// Default returns the built-in benchmark scenario: a 10x10 flat grid with
// a central station and a corner-to-corner traverse.
func Default() *Scenario {
	return &Scenario{
		Name:        "benchmark",
		Description: "Flat 10x10 traverse with a central recharge station",
		Width:       10,
		Height:      10,
		Layout: []string{
			"..........",
			"..........",
			"..........",
			"..........",
			"..........",
			".....S....",
			"..........",
			"..........",
			"..........",
			"..........",
		},
		Start:           world.Position{X: 0, Y: 0},
		Goal:            world.Position{X: 9, Y: 9},
		BatteryCapacity: 100,
		Heuristic:       string(planner.Manhattan),
	}
}

// Load reads and validates a scenario from a JSON file.
func Load(path string) (*Scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read scenario '%s': %w", path, err)
	}

	var s Scenario
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario '%s': %w", path, err)
	}

	if err := Validate(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario '%s': %w", path, err)
	}

	return &s, nil
}

// LoadByName loads a scenario by name from the scenarios directory. The
// SCENARIO_DIR environment variable overrides the default directory.
func LoadByName(name string) (*Scenario, error) {
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}

	dir := "scenarios"
	if override := os.Getenv("SCENARIO_DIR"); override != "" {
		dir = override
	}
	path := filepath.Join(dir, name)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("scenario file '%s' not found", name)
	}

	return Load(path)
}
