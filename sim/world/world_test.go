package world

import (
	"math/rand"
	"testing"
)

func TestRawCost(t *testing.T) {
	tests := []struct {
		kind TerrainKind
		want int
	}{
		{Flat, 5},
		{Sandy, 10},
		{SandTrap, 17},
		{RadiationSpot, 15},
		{Cliff, 20},
		{Rocky, 1000},
		{RechargeStation, 0},
		{TerrainKind("bogus"), 5},
	}
	for _, tt := range tests {
		if got := RawCost(tt.kind); got != tt.want {
			t.Errorf("RawCost(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestHazardous(t *testing.T) {
	hazardous := []TerrainKind{RadiationSpot, SandTrap, Cliff}
	for _, kind := range hazardous {
		if !Hazardous(kind) {
			t.Errorf("Hazardous(%s) = false, want true", kind)
		}
	}
	safe := []TerrainKind{Flat, Sandy, Rocky, RechargeStation}
	for _, kind := range safe {
		if Hazardous(kind) {
			t.Errorf("Hazardous(%s) = true, want false", kind)
		}
	}
}

func TestMovementCost(t *testing.T) {
	env := NewEnvironment(10, 10, false, rand.New(rand.NewSource(1)))
	env.SetTerrain(3, 3, Rocky)
	env.SetTerrain(4, 4, Sandy)

	tests := []struct {
		name string
		x, y int
		want int
	}{
		{"flat", 0, 0, 5},
		{"sandy", 4, 4, 10},
		{"rocky is impassable", 3, 3, CostImpassable},
		{"out of range", -1, 0, CostImpassable},
		{"beyond edge", 10, 10, CostImpassable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := env.MovementCost(tt.x, tt.y); got != tt.want {
				t.Errorf("MovementCost(%d,%d) = %d, want %d", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestSetTerrainStationRegistry(t *testing.T) {
	env := NewEnvironment(10, 10, false, rand.New(rand.NewSource(1)))

	env.SetTerrain(2, 2, RechargeStation)
	env.SetTerrain(5, 5, RechargeStation)
	if got := len(env.Stations()); got != 2 {
		t.Fatalf("stations after two placements = %d, want 2", got)
	}

	// Repainting the same station must not duplicate the registry entry.
	env.SetTerrain(2, 2, RechargeStation)
	if got := len(env.Stations()); got != 2 {
		t.Fatalf("stations after repaint = %d, want 2", got)
	}

	// Painting over a station removes it.
	env.SetTerrain(2, 2, Flat)
	stations := env.Stations()
	if len(stations) != 1 || stations[0] != (Position{X: 5, Y: 5}) {
		t.Fatalf("stations after removal = %v, want [(5,5)]", stations)
	}

	// Out-of-range paints are silently ignored.
	env.SetTerrain(-1, 50, RechargeStation)
	if got := len(env.Stations()); got != 1 {
		t.Fatalf("stations after out-of-range paint = %d, want 1", got)
	}
}

func TestNearestStation(t *testing.T) {
	env := NewEnvironment(10, 10, false, rand.New(rand.NewSource(1)))

	if _, ok := env.NearestStation(0, 0); ok {
		t.Fatal("NearestStation on empty registry returned ok")
	}

	env.SetTerrain(1, 1, RechargeStation)
	env.SetTerrain(8, 8, RechargeStation)

	got, ok := env.NearestStation(2, 2)
	if !ok || got != (Position{X: 1, Y: 1}) {
		t.Errorf("NearestStation(2,2) = %v, want (1,1)", got)
	}
	got, ok = env.NearestStation(7, 7)
	if !ok || got != (Position{X: 8, Y: 8}) {
		t.Errorf("NearestStation(7,7) = %v, want (8,8)", got)
	}

	// Equidistant stations resolve to the earliest registered.
	env2 := NewEnvironment(10, 10, false, rand.New(rand.NewSource(1)))
	env2.SetTerrain(0, 4, RechargeStation)
	env2.SetTerrain(4, 0, RechargeStation)
	got, _ = env2.NearestStation(0, 0)
	if got != (Position{X: 0, Y: 4}) {
		t.Errorf("tied NearestStation = %v, want first-registered (0,4)", got)
	}
}

func TestNeighborsOrderAndPassability(t *testing.T) {
	env := NewEnvironment(10, 10, false, rand.New(rand.NewSource(1)))
	env.SetTerrain(5, 6, Rocky)

	got := env.Neighbors(5, 5)
	want := []Position{{X: 5, Y: 4}, {X: 6, Y: 5}, {X: 4, Y: 5}}
	if len(got) != len(want) {
		t.Fatalf("Neighbors(5,5) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Neighbors(5,5) = %v, want %v", got, want)
		}
	}

	corner := env.Neighbors(0, 0)
	wantCorner := []Position{{X: 0, Y: 1}, {X: 1, Y: 0}}
	if len(corner) != 2 || corner[0] != wantCorner[0] || corner[1] != wantCorner[1] {
		t.Fatalf("Neighbors(0,0) = %v, want %v", corner, wantCorner)
	}
}

func TestStormFootprint(t *testing.T) {
	s := NewStorm(5, 5, 1, 0, 0, 0)

	inside := []Position{{5, 5}, {4, 5}, {6, 5}, {5, 4}, {5, 6}}
	for _, p := range inside {
		if !s.Contains(p.X, p.Y) {
			t.Errorf("storm should contain (%d,%d)", p.X, p.Y)
		}
	}
	// Diagonal corners are outside a radius-1 circle.
	outside := []Position{{4, 4}, {6, 6}, {4, 6}, {6, 4}, {7, 5}}
	for _, p := range outside {
		if s.Contains(p.X, p.Y) {
			t.Errorf("storm should not contain (%d,%d)", p.X, p.Y)
		}
	}
	if got := len(s.AffectedCells()); got != 5 {
		t.Errorf("radius-1 footprint has %d cells, want 5", got)
	}
}

func TestStormBounce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := NewStorm(8, 5, 1, 1, 0, 2)

	s.Move(10, 10, rng)

	dx, _ := s.Direction()
	if dx != -1 {
		t.Errorf("direction X after bounce = %d, want -1", dx)
	}
	if got := s.Center(); got.X != 8 {
		t.Errorf("center X after clamp = %d, want 8", got.X)
	}
}

func TestStormStaysInBounds(t *testing.T) {
	const width, height = 20, 15
	rng := rand.New(rand.NewSource(7))

	for _, radius := range []int{0, 1, 2, 3} {
		s := NewStorm(10, 7, radius, 1, -1, 2)
		for i := 0; i < 200; i++ {
			s.Move(width, height, rng)
			c := s.Center()
			if c.X < radius || c.X > width-radius-1 || c.Y < radius || c.Y > height-radius-1 {
				t.Fatalf("radius %d tick %d: center %v escaped bounds", radius, i, c)
			}
			for _, cell := range s.AffectedCells() {
				if cell.X < 0 || cell.X >= width || cell.Y < 0 || cell.Y >= height {
					t.Fatalf("radius %d tick %d: cell %v off grid", radius, i, cell)
				}
			}
		}
	}
}

func TestUpdateStormsCadence(t *testing.T) {
	env := NewEnvironment(20, 20, true, rand.New(rand.NewSource(3)))
	env.AddStorm(NewStorm(5, 5, 1, 1, 0, 1))

	for i := 0; i < 4; i++ {
		env.UpdateStorms()
	}
	if got := env.ActiveStorms()[0].Center(); got != (Position{X: 5, Y: 5}) {
		t.Fatalf("storm moved before fifth tick: %v", got)
	}

	env.UpdateStorms()
	if got := env.ActiveStorms()[0].Center(); got != (Position{X: 6, Y: 5}) {
		t.Fatalf("storm after fifth tick = %v, want (6,5)", got)
	}
}

func TestStormAdjustedCost(t *testing.T) {
	env := NewEnvironment(10, 10, true, rand.New(rand.NewSource(1)))
	env.SetTerrain(5, 6, Sandy)
	env.SetTerrain(5, 4, RechargeStation)
	env.AddStorm(NewStorm(5, 5, 1, 0, 0, 0))

	tests := []struct {
		name string
		x, y int
		want int
	}{
		{"flat in storm truncates 6.25 to 6", 5, 5, 6},
		{"sandy in storm truncates 12.5 to 12", 5, 6, 12},
		{"station is sheltered", 5, 4, 0},
		{"outside the storm pays base cost", 0, 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := env.StormAdjustedCost(tt.x, tt.y); got != tt.want {
				t.Errorf("StormAdjustedCost(%d,%d) = %d, want %d", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestStormsDisabled(t *testing.T) {
	env := NewEnvironment(10, 10, false, rand.New(rand.NewSource(1)))
	env.AddStorm(NewStorm(5, 5, 2, 1, 0, 1))

	if env.InStorm(5, 5) {
		t.Error("InStorm should be false when storms are disabled")
	}
	if env.ActiveStorms() != nil {
		t.Error("ActiveStorms should be nil when storms are disabled")
	}
	if got := env.StormAdjustedCost(5, 5); got != 5 {
		t.Errorf("StormAdjustedCost with storms disabled = %d, want 5", got)
	}
}

func TestAddStormRandomizesZeroDirection(t *testing.T) {
	env := NewEnvironment(10, 10, true, rand.New(rand.NewSource(9)))
	s := NewStorm(5, 5, 1, 0, 0, 1)
	env.AddStorm(s)

	dx, dy := s.Direction()
	if dx == 0 && dy == 0 {
		t.Error("moving storm kept a zero direction vector")
	}
}

func TestSafeFromStorm(t *testing.T) {
	env := NewEnvironment(10, 10, true, rand.New(rand.NewSource(1)))
	env.SetTerrain(5, 5, RechargeStation)
	env.AddStorm(NewStorm(5, 5, 1, 0, 0, 0))

	if !env.SafeFromStorm(5, 5) {
		t.Error("station under a storm should still be safe")
	}
	if env.SafeFromStorm(4, 5) {
		t.Error("open ground under a storm should not be safe")
	}
	if !env.SafeFromStorm(0, 0) {
		t.Error("ground outside the storm should be safe")
	}
}

func TestDistances(t *testing.T) {
	a := Position{X: 0, Y: 0}
	b := Position{X: 3, Y: 4}
	if got := Euclidean(a, b); got != 5 {
		t.Errorf("Euclidean = %f, want 5", got)
	}
	if got := Manhattan(a, b); got != 7 {
		t.Errorf("Manhattan = %d, want 7", got)
	}
}
