package decision

import (
	"math"

	"github.com/windbluesea/tacsim-agent/pkg/tactical"
)

// pathDirections are the 8 neighborhood offsets of the cost-field
// descent: unit vectors on the cardinals, 0.7-magnitude diagonals.
var pathDirections = [8][2]float64{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{0.7, 0.7}, {0.7, -0.7}, {-0.7, 0.7}, {-0.7, -0.7},
}

// PlanPath runs a greedy cost-field descent from start toward goal. The
// returned path begins at start and holds at most horizon+2 poses: the
// start, up to horizon greedy steps, and a terminal goal pose when the
// descent stops short.
func PlanPath(start, goal tactical.Pose, snapshot tactical.BattlefieldSnapshot, cfg ManeuverConfig) []tactical.Pose {
	path := []tactical.Pose{start}
	current := start

	for step := 0; step < cfg.PathHorizonSteps; step++ {
		if tactical.Distance(current, goal) <= cfg.PathStepM {
			break
		}

		var best tactical.Pose
		bestCost := math.Inf(1)
		for _, dir := range pathDirections {
			candidate := tactical.Pose{
				X: current.X + dir[0]*cfg.PathStepM,
				Y: current.Y + dir[1]*cfg.PathStepM,
				Z: current.Z,
			}
			cost := 0.8*tactical.Distance(candidate, goal) +
				35*ThreatField(candidate, snapshot) +
				0.2*tactical.Distance(candidate, current)
			if cost < bestCost {
				bestCost = cost
				best = candidate
			}
		}

		path = append(path, best)
		current = best
	}

	if tactical.Distance(current, goal) > cfg.PathStepM {
		path = append(path, goal)
	}
	return path
}

// ThreatField evaluates the scalar danger at a point: hostile proximity
// weighted by declared threat, an extra artillery term, and a terrain
// penalty from the environment.
func ThreatField(p tactical.Pose, snapshot tactical.BattlefieldSnapshot) float64 {
	field := 0.0
	for _, enemy := range snapshot.HostileUnits {
		d := math.Max(25, tactical.Distance(p, enemy.Pose))
		field += (enemy.ThreatLevel*120 + 20) / d
		if enemy.Type == tactical.UnitArtillery {
			field += 12 / math.Sqrt(d)
		}
	}
	return field + 5*snapshot.Env.TerrainRisk
}
