package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/windbluesea/tacsim-agent/pkg/decision"
	"github.com/windbluesea/tacsim-agent/pkg/dis"
	"github.com/windbluesea/tacsim-agent/pkg/inference"
	"github.com/windbluesea/tacsim-agent/pkg/tactical"
)

func newTestPipeline(cacheTTLMs int64) *AgentPipeline {
	return New(
		Config{CacheTTLMs: cacheTTLMs, MemoryWindowMs: 5 * 60 * 1000},
		decision.NewFireControlEngine(decision.DefaultFireConfig()),
		decision.NewManeuverEngine(decision.DefaultManeuverConfig()),
		inference.New(inference.DefaultConfig()),
	)
}

func contactSnapshot(ts int64) tactical.BattlefieldSnapshot {
	return tactical.BattlefieldSnapshot{
		TimestampMs: ts,
		FriendlyUnits: []tactical.EntityState{{
			ID: "F-1", Side: tactical.SideFriendly, Type: tactical.UnitArmor,
			Pose: tactical.Pose{X: 0, Y: 0}, Alive: true,
			Weapons: dis.DefaultWeapons(tactical.UnitArmor),
		}},
		HostileUnits: []tactical.EntityState{{
			ID: "H-1", Side: tactical.SideHostile, Type: tactical.UnitArmor,
			Pose: tactical.Pose{X: 900, Y: 0}, SpeedMps: 5, ThreatLevel: 0.9, Alive: true,
		}},
		Env: tactical.EnvironmentState{VisibilityM: 1500},
	}
}

func TestTickCacheHit(t *testing.T) {
	p := newTestPipeline(3000)
	snapshot := contactSnapshot(1000)

	first := p.Tick(context.Background(), snapshot, nil)
	require.False(t, first.FromCache)
	require.NotEmpty(t, first.Fire.Summary)
	require.NotEmpty(t, first.Maneuver.Summary)

	second := p.Tick(context.Background(), snapshot, nil)
	require.True(t, second.FromCache)
	require.Equal(t, first.Fire.Summary, second.Fire.Summary)
	require.Equal(t, first.Maneuver.Summary, second.Maneuver.Summary)
	require.Equal(t, first.Fire, second.Fire)
	require.Equal(t, first.Maneuver, second.Maneuver)
}

func TestTickCacheExpiry(t *testing.T) {
	p := newTestPipeline(3000)

	first := p.Tick(context.Background(), contactSnapshot(1000), nil)
	require.False(t, first.FromCache)

	// Same fingerprint but beyond the TTL: recomputed.
	later := p.Tick(context.Background(), contactSnapshot(5000), nil)
	require.False(t, later.FromCache)
}

func TestTickExplanationFormat(t *testing.T) {
	p := newTestPipeline(3000)
	pkg := p.Tick(context.Background(), contactSnapshot(1000), nil)
	require.True(t, strings.HasPrefix(pkg.Explanation, "selected_index=0; "))
}

func TestTickMovementChangesKey(t *testing.T) {
	p := newTestPipeline(3000)

	first := p.Tick(context.Background(), contactSnapshot(1000), nil)
	require.False(t, first.FromCache)

	// 150 m displacement crosses a 100 m quantization bin.
	moved := contactSnapshot(1500)
	moved.FriendlyUnits[0].Pose.X += 150
	second := p.Tick(context.Background(), moved, nil)
	require.False(t, second.FromCache)
}

func TestTickFeedsEventsIntoFusion(t *testing.T) {
	p := newTestPipeline(3000)

	events := []tactical.EventRecord{{
		TimestampMs: 900,
		Type:        tactical.EventWeaponFire,
		ActorID:     "H-9",
		Message:     "武器=howitzer，目标=F-1",
	}}

	pkg := p.Tick(context.Background(), contactSnapshot(1000), events)
	// Artillery activity forces dispersal.
	require.Equal(t, tactical.FormationDisperse, pkg.Maneuver.FormationMode)
	// The fire event also registers as recent fire memory in the summary.
	require.Contains(t, pkg.Fire.Summary, "近期火力记忆=有")
}

func TestBuildCacheKey(t *testing.T) {
	snapshot := tactical.BattlefieldSnapshot{
		TimestampMs: 1000,
		FriendlyUnits: []tactical.EntityState{
			{ID: "F-1", Pose: tactical.Pose{X: 120, Y: 260}},
		},
		HostileUnits: []tactical.EntityState{
			{ID: "H-1", Pose: tactical.Pose{X: 950, Y: -20}},
		},
		Env: tactical.EnvironmentState{VisibilityM: 1500},
	}

	// Floor toward negative infinity: -20 → bin -1.
	require.Equal(t, "f=1|h=1|v=15|F-1@1,2|H-1@9,-1", BuildCacheKey(snapshot))
}

func TestBuildCacheKeyStability(t *testing.T) {
	a := contactSnapshot(1000)
	b := contactSnapshot(99999)

	// Timestamp is not part of the fingerprint.
	require.Equal(t, BuildCacheKey(a), BuildCacheKey(b))

	// Sub-bin jitter keeps the key stable.
	jittered := contactSnapshot(1000)
	jittered.FriendlyUnits[0].Pose.X += 40
	require.Equal(t, BuildCacheKey(a), BuildCacheKey(jittered))
}
