package scenario

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/redsand/roversim/sim/world"
)

// Terrain thresholds over normalized [0,1] noise. The bands are ordered
// from common to rare so most of the map stays drivable.
const (
	sandyThreshold     = 0.60
	rockyThreshold     = 0.78
	radiationThreshold = 0.86
	trapThreshold      = 0.92
	cliffThreshold     = 0.97
)

// generateTerrain paints env from two independent noise layers: one for
// the broad surface (flat, sandy, rocky) and one for hazard pockets.
func generateTerrain(env *world.Environment, spec *GenerateSpec, seed int64) {
	surface := opensimplex.NewNormalized(seed)
	hazards := opensimplex.NewNormalized(seed + 1)

	for y := 0; y < env.Height(); y++ {
		for x := 0; x < env.Width(); x++ {
			fx := float64(x) * spec.Frequency
			fy := float64(y) * spec.Frequency

			kind := world.Flat
			if v := surface.Eval2(fx, fy); v >= rockyThreshold {
				kind = world.Rocky
			} else if v >= sandyThreshold {
				kind = world.Sandy
			}

			// Hazards overwrite the surface where their layer spikes.
			switch h := hazards.Eval2(fx, fy); {
			case h >= cliffThreshold:
				kind = world.Cliff
			case h >= trapThreshold:
				kind = world.SandTrap
			case h >= radiationThreshold:
				kind = world.RadiationSpot
			}

			if kind != world.Flat {
				env.SetTerrain(x, y, kind)
			}
		}
	}

	if spec.StationSpacing > 0 {
		for y := spec.StationSpacing / 2; y < env.Height(); y += spec.StationSpacing {
			for x := spec.StationSpacing / 2; x < env.Width(); x += spec.StationSpacing {
				env.SetTerrain(x, y, world.RechargeStation)
			}
		}
	}
}
