// Package fusion derives tagged tactical semantics from a battlefield
// snapshot and the recent event record.
package fusion

import (
	"math"
	"strings"

	"github.com/windbluesea/tacsim-agent/pkg/tactical"
)

const (
	leftFlankMarginM    = 200.0
	armorClusterRangeM  = 2200.0
	lowVisibilityFloorM = 700.0
)

// SituationFusion is stateless; one instance can serve many ticks.
type SituationFusion struct{}

// Infer produces the tactical tags for the current situation. With no
// effective contact on either side, only insufficient_contact is emitted.
func (SituationFusion) Infer(snapshot tactical.BattlefieldSnapshot, recentEvents []tactical.EventRecord) tactical.SituationSemantics {
	var semantics tactical.SituationSemantics

	if len(snapshot.FriendlyUnits) == 0 || len(snapshot.HostileUnits) == 0 {
		semantics.Tags = append(semantics.Tags, tactical.TacticalTag{
			Name:       tactical.TagInsufficientContact,
			Confidence: 1.0,
			Reason:     "缺少敌我有效接触信息",
		})
		return semantics
	}

	if n := countEnemyOnLeftFlank(snapshot); n > 0 {
		semantics.Tags = append(semantics.Tags, tactical.TacticalTag{
			Name:       tactical.TagLeftFlankExposed,
			Confidence: math.Min(1, float64(n)/3.0),
			Reason:     "左翼边界出现敌方集中态势",
		})
	}

	if n := countNearbyArmor(snapshot, armorClusterRangeM); n >= 2 {
		semantics.Tags = append(semantics.Tags, tactical.TacticalTag{
			Name:       tactical.TagEnemyArmorCluster,
			Confidence: math.Min(1, float64(n)/4.0),
			Reason:     "交战范围内出现多条装甲目标轨迹",
		})
	}

	if snapshot.Env.VisibilityM < lowVisibilityFloorM {
		semantics.Tags = append(semantics.Tags, tactical.TacticalTag{
			Name:       tactical.TagLowVisibility,
			Confidence: 0.85,
			Reason:     "可视距离低于700米",
		})
	}

	if hasRecentArtilleryFire(recentEvents) {
		semantics.Tags = append(semantics.Tags, tactical.TacticalTag{
			Name:       tactical.TagRecentArtilleryFire,
			Confidence: 0.75,
			Reason:     "记忆窗口内出现敌方炮兵火力活动",
		})
	}

	if len(semantics.Tags) == 0 {
		semantics.Tags = append(semantics.Tags, tactical.TacticalTag{
			Name:       tactical.TagStableContact,
			Confidence: 0.60,
			Reason:     "当前未发现异常战术压力",
		})
	}

	return semantics
}

// countEnemyOnLeftFlank counts hostiles west of the leftmost friendly
// plus a fixed margin.
func countEnemyOnLeftFlank(snapshot tactical.BattlefieldSnapshot) int {
	minX := snapshot.FriendlyUnits[0].Pose.X
	for _, unit := range snapshot.FriendlyUnits[1:] {
		if unit.Pose.X < minX {
			minX = unit.Pose.X
		}
	}

	boundary := minX + leftFlankMarginM
	count := 0
	for _, enemy := range snapshot.HostileUnits {
		if enemy.Pose.X < boundary {
			count++
		}
	}
	return count
}

// countNearbyArmor counts hostile armor within range of any friendly.
func countNearbyArmor(snapshot tactical.BattlefieldSnapshot, rangeM float64) int {
	count := 0
	for _, enemy := range snapshot.HostileUnits {
		if enemy.Type != tactical.UnitArmor {
			continue
		}
		for _, friendly := range snapshot.FriendlyUnits {
			if tactical.Distance(enemy.Pose, friendly.Pose) <= rangeM {
				count++
				break
			}
		}
	}
	return count
}

func hasRecentArtilleryFire(events []tactical.EventRecord) bool {
	for _, event := range events {
		if event.Type == tactical.EventWeaponFire && strings.Contains(event.Message, "howitzer") {
			return true
		}
	}
	return false
}
