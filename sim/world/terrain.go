package world

// TerrainKind identifies the surface type of a grid cell
type TerrainKind string

const (
	Flat            TerrainKind = "flat"
	Sandy           TerrainKind = "sandy"
	SandTrap        TerrainKind = "sand_trap"
	RadiationSpot   TerrainKind = "radiation_spot"
	Cliff           TerrainKind = "cliff"
	Rocky           TerrainKind = "rocky"
	RechargeStation TerrainKind = "recharge_station"
)

// CostImpassable is the sentinel movement cost for cells the rover can
// never enter (rocky terrain or out-of-range coordinates).
const CostImpassable = 1 << 30

// terrainCosts is the immutable battery-cost table. Rocky keeps its raw
// table value of 1000 because the terrain-cost-aware heuristic averages
// raw costs over a window; passability is enforced separately.
var terrainCosts = map[TerrainKind]int{
	Flat:            5,
	Sandy:           10,
	SandTrap:        17,
	RadiationSpot:   15,
	Cliff:           20,
	Rocky:           1000,
	RechargeStation: 0,
}

// RawCost returns the table cost for a terrain kind, including the
// nominal 1000 for rocky cells. Unknown kinds cost the same as flat.
func RawCost(kind TerrainKind) int {
	if c, ok := terrainCosts[kind]; ok {
		return c
	}
	return terrainCosts[Flat]
}

// Kinds returns all terrain kinds in display order.
func Kinds() []TerrainKind {
	return []TerrainKind{Flat, Sandy, SandTrap, RadiationSpot, Cliff, Rocky, RechargeStation}
}

// ValidKind reports whether kind names a known terrain type.
func ValidKind(kind TerrainKind) bool {
	_, ok := terrainCosts[kind]
	return ok
}

// Hazardous reports whether a terrain kind triggers a reflex backtrack
// once entered. Sandy is merely expensive and stations are free; neither
// is hazardous.
func Hazardous(kind TerrainKind) bool {
	switch kind {
	case RadiationSpot, SandTrap, Cliff:
		return true
	default:
		return false
	}
}
