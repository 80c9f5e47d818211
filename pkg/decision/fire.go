// Package decision holds the per-tick tactical engines: fire control
// with threat scoring and coordination tactics, and maneuver planning
// over a cost field.
package decision

import (
	"fmt"
	"math"
	"sort"

	"github.com/windbluesea/tacsim-agent/pkg/memory"
	"github.com/windbluesea/tacsim-agent/pkg/tactical"
)

// recentFireWindowMs is how far back the fire summary looks for an
// earlier weapon-fire memory.
const recentFireWindowMs = 5 * 60 * 1000

// staggerStepS is the scheduling gap between consecutive ranked shots.
const staggerStepS = 1.25

// typeThreatWeight drives the unit-type term of the threat index.
var typeThreatWeight = map[tactical.UnitType]float64{
	tactical.UnitArmor:      95,
	tactical.UnitArtillery:  92,
	tactical.UnitCommand:    88,
	tactical.UnitAirDefense: 80,
	tactical.UnitInfantry:   55,
	tactical.UnitUnknown:    40,
}

// FireConfig tunes the coordination tactics of the fire-control engine.
type FireConfig struct {
	EnableFocusFire          bool
	EnableStaggerFire        bool
	MaxShootersPerTarget     int
	FocusFireThreatThreshold float64
}

// DefaultFireConfig returns the stock engine configuration.
func DefaultFireConfig() FireConfig {
	return FireConfig{
		EnableFocusFire:          true,
		EnableStaggerFire:        true,
		MaxShootersPerTarget:     2,
		FocusFireThreatThreshold: 78.0,
	}
}

// FireControlEngine assigns shooters to targets. It is stateless apart
// from its configuration.
type FireControlEngine struct {
	cfg FireConfig
}

// NewFireControlEngine creates an engine with the given configuration.
func NewFireControlEngine(cfg FireConfig) *FireControlEngine {
	if cfg.MaxShootersPerTarget <= 0 {
		cfg.MaxShootersPerTarget = 2
	}
	return &FireControlEngine{cfg: cfg}
}

// ThreatIndex scores a hostile target given its minimum distance to any
// friendly unit. The index is dimensionless and non-negative.
func ThreatIndex(target tactical.EntityState, minDistance float64) float64 {
	return 0.50*typeThreatWeight[target.Type] +
		0.25*(1000.0/(1.0+minDistance)) +
		1.2*math.Min(20, target.SpeedMps) +
		25*tactical.Clamp01(target.ThreatLevel)
}

// WeaponFitScore rates a weapon against a target at the given distance.
// Ineligible weapons (dry, cooling down, out of range) score -1.
func WeaponFitScore(w tactical.WeaponState, target tactical.EntityState, distance float64) float64 {
	if w.Ammo <= 0 || w.ReadyInS > 0 {
		return -1
	}
	if w.RangeM <= 0 || distance > w.RangeM {
		return -1
	}

	rangeFactor := 1 - 0.6*(distance/w.RangeM)
	preference := 0.85
	if w.Prefers(target.Type) {
		preference = 1.15
	}
	quality := tactical.Clamp01(w.KillProbability)
	return math.Max(0, rangeFactor*preference*(0.6+quality))
}

// Decide produces the fire decision for one tick: threat estimates for
// every live hostile and at most one assignment per live shooter.
func (e *FireControlEngine) Decide(snapshot tactical.BattlefieldSnapshot, _ tactical.SituationSemantics, mem *memory.EventMemory) tactical.FireDecision {
	var out tactical.FireDecision

	shooters := liveUnits(snapshot.FriendlyUnits)
	targets := liveUnits(snapshot.HostileUnits)

	threatByTarget := make(map[string]float64, len(targets))
	for _, target := range targets {
		d := minDistanceToAny(target.Pose, shooters)
		index := ThreatIndex(target, d)
		threatByTarget[target.ID] = index
		out.Threats = append(out.Threats, tactical.ThreatEstimate{
			TargetID: target.ID,
			Index:    index,
			Reason:   fmt.Sprintf("类型=%s，最近友军距离=%.0f米", target.Type, d),
		})
	}
	sort.SliceStable(out.Threats, func(i, j int) bool {
		return out.Threats[i].Index > out.Threats[j].Index
	})

	shooterByID := make(map[string]tactical.EntityState, len(shooters))
	for _, shooter := range shooters {
		shooterByID[shooter.ID] = shooter
		if len(shooter.Weapons) == 0 {
			continue
		}
		assignment, ok := e.bestAssignment(shooter, targets, threatByTarget)
		if !ok {
			continue
		}
		out.Assignments = append(out.Assignments, assignment)
	}

	if e.cfg.EnableFocusFire && len(out.Threats) > 0 {
		top := out.Threats[0]
		if top.Index >= e.cfg.FocusFireThreatThreshold {
			e.applyFocusFire(out.Assignments, top, targets, shooterByID)
		}
	}

	if e.cfg.EnableStaggerFire {
		applyStaggerFire(out.Assignments)
	}

	out.Summary = buildFireSummary(out, snapshot.TimestampMs, mem)
	return out
}

// bestAssignment picks the (target, weapon) pair maximizing the product
// of weapon fit and threat index. First-seen wins on ties.
func (e *FireControlEngine) bestAssignment(shooter tactical.EntityState, targets []tactical.EntityState, threatByTarget map[string]float64) (tactical.TargetAssignment, bool) {
	var best tactical.TargetAssignment
	found := false

	for _, target := range targets {
		distance := tactical.Distance(shooter.Pose, target.Pose)
		for _, weapon := range shooter.Weapons {
			fit := WeaponFitScore(weapon, target, distance)
			if fit <= 0 {
				continue
			}
			score := fit * threatByTarget[target.ID]
			if !found || score > best.Score {
				best = tactical.TargetAssignment{
					ShooterID:        shooter.ID,
					TargetID:         target.ID,
					WeaponName:       weapon.Name,
					Score:            score,
					ExpectedKillProb: weapon.KillProbability,
					Tactic:           tactical.TacticSingleShot,
					Rationale:        "当前配置下可获得最高威胁压制收益",
				}
				found = true
			}
		}
	}

	if !found || best.Score <= 0 {
		return tactical.TargetAssignment{}, false
	}
	return best, true
}

// applyFocusFire concentrates fire on the top threat: assignments
// already on it are re-tagged, and other shooters are retargeted in
// iteration order until the per-target cap is reached. A shooter is
// retargeted only if it has an eligible weapon against the top threat.
func (e *FireControlEngine) applyFocusFire(assignments []tactical.TargetAssignment, top tactical.ThreatEstimate, targets []tactical.EntityState, shooterByID map[string]tactical.EntityState) {
	var topTarget *tactical.EntityState
	for i := range targets {
		if targets[i].ID == top.TargetID {
			topTarget = &targets[i]
			break
		}
	}
	if topTarget == nil {
		return
	}

	assigned := 0
	for i := range assignments {
		if assignments[i].TargetID == top.TargetID {
			assigned++
		}
	}

	for i := range assignments {
		a := &assignments[i]
		if a.TargetID == top.TargetID {
			a.Tactic = tactical.TacticFocusFire
			a.Rationale = "集火压制最高威胁目标"
			continue
		}
		if assigned >= e.cfg.MaxShootersPerTarget {
			continue
		}

		shooter, ok := shooterByID[a.ShooterID]
		if !ok {
			continue
		}
		weapon, fit, ok := bestWeaponAgainst(shooter, *topTarget)
		if !ok {
			continue
		}

		a.TargetID = top.TargetID
		a.WeaponName = weapon.Name
		a.Score = fit * top.Index
		a.ExpectedKillProb = weapon.KillProbability
		a.Tactic = tactical.TacticFocusFire
		a.Rationale = "集火压制最高威胁目标"
		assigned++
	}
}

// bestWeaponAgainst returns the shooter's highest-fit eligible weapon
// against the target, first-seen winning ties.
func bestWeaponAgainst(shooter tactical.EntityState, target tactical.EntityState) (tactical.WeaponState, float64, bool) {
	distance := tactical.Distance(shooter.Pose, target.Pose)
	var best tactical.WeaponState
	bestFit := 0.0
	found := false
	for _, weapon := range shooter.Weapons {
		fit := WeaponFitScore(weapon, target, distance)
		if fit <= 0 {
			continue
		}
		if !found || fit > bestFit {
			best = weapon
			bestFit = fit
			found = true
		}
	}
	return best, bestFit, found
}

// applyStaggerFire spreads shot times across the score-ranked
// assignments. Assignments still tagged single_shot become stagger_fire.
func applyStaggerFire(assignments []tactical.TargetAssignment) {
	sort.SliceStable(assignments, func(i, j int) bool {
		return assignments[i].Score > assignments[j].Score
	})
	for i := range assignments {
		assignments[i].ScheduledOffsetS = staggerStepS * float64(i)
		if assignments[i].Tactic == tactical.TacticSingleShot {
			assignments[i].Tactic = tactical.TacticStaggerFire
		}
	}
}

func buildFireSummary(out tactical.FireDecision, nowMs int64, mem *memory.EventMemory) string {
	topID := "无"
	if len(out.Threats) > 0 {
		topID = out.Threats[0].TargetID
	}
	recent := "无"
	if mem != nil {
		if _, ok := mem.LastEventByType(tactical.EventWeaponFire, nowMs, recentFireWindowMs); ok {
			recent = "有"
		}
	}
	return fmt.Sprintf("火力分配数=%d，最高威胁=%s，近期火力记忆=%s", len(out.Assignments), topID, recent)
}

func liveUnits(units []tactical.EntityState) []tactical.EntityState {
	out := make([]tactical.EntityState, 0, len(units))
	for _, u := range units {
		if u.Alive {
			out = append(out, u)
		}
	}
	return out
}

func minDistanceToAny(p tactical.Pose, units []tactical.EntityState) float64 {
	min := math.Inf(1)
	for _, u := range units {
		if d := tactical.Distance(p, u.Pose); d < min {
			min = d
		}
	}
	if math.IsInf(min, 1) {
		return 0
	}
	return min
}
