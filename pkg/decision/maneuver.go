package decision

import (
	"fmt"
	"math"

	"github.com/windbluesea/tacsim-agent/pkg/tactical"
)

// ManeuverConfig tunes evasion distance and path-planning granularity.
type ManeuverConfig struct {
	EmergencyDistanceM float64
	PathStepM          float64
	PathHorizonSteps   int
}

// DefaultManeuverConfig returns the stock engine configuration.
func DefaultManeuverConfig() ManeuverConfig {
	return ManeuverConfig{
		EmergencyDistanceM: 450,
		PathStepM:          80,
		PathHorizonSteps:   8,
	}
}

// ManeuverEngine plans per-unit movement and the force-wide formation
// posture for one tick.
type ManeuverEngine struct {
	cfg ManeuverConfig
}

// NewManeuverEngine creates an engine with the given configuration.
func NewManeuverEngine(cfg ManeuverConfig) *ManeuverEngine {
	if cfg.PathStepM <= 0 {
		cfg.PathStepM = 80
	}
	if cfg.PathHorizonSteps <= 0 {
		cfg.PathHorizonSteps = 8
	}
	return &ManeuverEngine{cfg: cfg}
}

// Decide produces maneuver actions for every live friendly unit.
func (e *ManeuverEngine) Decide(snapshot tactical.BattlefieldSnapshot, semantics tactical.SituationSemantics) tactical.ManeuverDecision {
	out := tactical.ManeuverDecision{FormationMode: formationMode(semantics)}

	if len(snapshot.FriendlyUnits) == 0 {
		out.Summary = "机动动作数=0"
		return out
	}

	centroid := centroidOf(snapshot.FriendlyUnits)

	for _, unit := range snapshot.FriendlyUnits {
		if !unit.Alive {
			continue
		}

		nearest, nearestDist := nearestHostile(unit.Pose, snapshot.HostileUnits)

		if nearest != nil && nearestDist < e.cfg.EmergencyDistanceM {
			next := MoveAway(unit.Pose, nearest.Pose, 1.5*e.cfg.PathStepM)
			out.Actions = append(out.Actions, tactical.ManeuverAction{
				UnitID:     unit.ID,
				ActionName: tactical.ActionEmergencyEvasion,
				Path:       []tactical.Pose{unit.Pose, next},
				NextPose:   next,
				Rationale:  "近距威胁触发紧急规避",
			})
			continue
		}

		goal, name, rationale := e.goalFor(unit.Pose, semantics)
		goal = blendGoal(goal, unit.Pose, centroid, out.FormationMode)

		path := PlanPath(unit.Pose, goal, snapshot, e.cfg)
		next := goal
		if len(path) > 0 {
			next = path[len(path)-1]
		}
		out.Actions = append(out.Actions, tactical.ManeuverAction{
			UnitID:     unit.ID,
			ActionName: name,
			Path:       path,
			NextPose:   next,
			Rationale:  rationale,
		})
	}

	out.Summary = fmt.Sprintf("机动动作数=%d", len(out.Actions))
	return out
}

// goalFor picks the movement goal and action by situational tag.
func (e *ManeuverEngine) goalFor(self tactical.Pose, semantics tactical.SituationSemantics) (tactical.Pose, tactical.ManeuverActionName, string) {
	switch {
	case semantics.HasTag(tactical.TagLeftFlankExposed):
		return tactical.Pose{X: self.X - 220, Y: self.Y + 80, Z: self.Z},
			tactical.ActionFlankReinforce, "增援暴露左翼"
	case semantics.HasTag(tactical.TagEnemyArmorCluster):
		return tactical.Pose{X: self.X + 60, Y: self.Y + 200, Z: self.Z},
			tactical.ActionOccupyTerrain, "抢占有利地形应对装甲集群"
	default:
		return tactical.Pose{X: self.X, Y: self.Y + 160, Z: self.Z},
			tactical.ActionAdvanceBound, "保持接触并逐段推进"
	}
}

// formationMode is disperse under flank pressure or recent artillery
// activity, otherwise assemble.
func formationMode(semantics tactical.SituationSemantics) tactical.FormationMode {
	if semantics.HasTag(tactical.TagLeftFlankExposed) || semantics.HasTag(tactical.TagRecentArtilleryFire) {
		return tactical.FormationDisperse
	}
	return tactical.FormationAssemble
}

// blendGoal pulls the goal toward or away from the force centroid
// depending on the formation mode.
func blendGoal(goal, self, centroid tactical.Pose, mode tactical.FormationMode) tactical.Pose {
	if mode == tactical.FormationDisperse {
		away := MoveAway(self, centroid, 40)
		return tactical.Pose{
			X: (goal.X + away.X) / 2,
			Y: (goal.Y + away.Y) / 2,
			Z: (goal.Z + away.Z) / 2,
		}
	}
	return tactical.Pose{
		X: 0.8*goal.X + 0.2*centroid.X,
		Y: 0.8*goal.Y + 0.2*centroid.Y,
		Z: 0.8*goal.Z + 0.2*centroid.Z,
	}
}

// MoveAway steps away from other along the other→self direction,
// preserving z. The denominator is floored to avoid the singularity
// when the poses coincide.
func MoveAway(self, other tactical.Pose, step float64) tactical.Pose {
	dx := self.X - other.X
	dy := self.Y - other.Y
	norm := math.Max(1, math.Sqrt(dx*dx+dy*dy))
	return tactical.Pose{
		X: self.X + dx/norm*step,
		Y: self.Y + dy/norm*step,
		Z: self.Z,
	}
}

func centroidOf(units []tactical.EntityState) tactical.Pose {
	var c tactical.Pose
	if len(units) == 0 {
		return c
	}
	for _, u := range units {
		c.X += u.Pose.X
		c.Y += u.Pose.Y
		c.Z += u.Pose.Z
	}
	n := float64(len(units))
	return tactical.Pose{X: c.X / n, Y: c.Y / n, Z: c.Z / n}
}

func nearestHostile(p tactical.Pose, hostiles []tactical.EntityState) (*tactical.EntityState, float64) {
	var nearest *tactical.EntityState
	nearestDist := math.Inf(1)
	for i := range hostiles {
		if d := tactical.Distance(p, hostiles[i].Pose); d < nearestDist {
			nearestDist = d
			nearest = &hostiles[i]
		}
	}
	return nearest, nearestDist
}
