package replay

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/windbluesea/tacsim-agent/pkg/tactical"
)

func metricsUnit(id string, side tactical.Side, alive bool) tactical.EntityState {
	return tactical.EntityState{ID: id, Side: side, Type: tactical.UnitArmor, Alive: alive}
}

func metricsSnapshot(ts int64, friendlies, hostiles []tactical.EntityState) tactical.BattlefieldSnapshot {
	return tactical.BattlefieldSnapshot{
		TimestampMs:   ts,
		FriendlyUnits: friendlies,
		HostileUnits:  hostiles,
	}
}

func decisionWith(assignments ...tactical.TargetAssignment) tactical.DecisionPackage {
	return tactical.DecisionPackage{Fire: tactical.FireDecision{Assignments: assignments}}
}

func TestKillCreditSplit(t *testing.T) {
	m := NewMetricsEvaluator(DefaultKillCreditWindowMs)

	m.ObserveSnapshot(metricsSnapshot(0,
		[]tactical.EntityState{
			metricsUnit("F-1", tactical.SideFriendly, true),
			metricsUnit("F-2", tactical.SideFriendly, true),
		},
		[]tactical.EntityState{metricsUnit("H-1", tactical.SideHostile, true)},
	))

	m.ObserveDecision(1000, decisionWith(
		tactical.TargetAssignment{ShooterID: "F-1", TargetID: "H-1"},
		tactical.TargetAssignment{ShooterID: "F-2", TargetID: "H-1"},
	))

	m.ObserveSnapshot(metricsSnapshot(3000,
		[]tactical.EntityState{
			metricsUnit("F-1", tactical.SideFriendly, true),
			metricsUnit("F-2", tactical.SideFriendly, false),
		},
		[]tactical.EntityState{metricsUnit("H-1", tactical.SideHostile, false)},
	))

	result := m.Finalize()
	require.Equal(t, 2, result.InitialFriendlyCount)
	require.Equal(t, 1, result.FinalFriendlyAlive)
	require.Equal(t, 50.0, result.SurvivalRate)
	require.Equal(t, 1, result.TotalHostileLosses)
	require.Equal(t, 100.0, result.HitContributionRate)
	require.InDelta(t, 0.5, result.ShooterKillContribution["F-1"], 1e-9)
	require.InDelta(t, 0.5, result.ShooterKillContribution["F-2"], 1e-9)
}

func TestKillCreditConservation(t *testing.T) {
	m := NewMetricsEvaluator(DefaultKillCreditWindowMs)

	m.ObserveSnapshot(metricsSnapshot(0,
		[]tactical.EntityState{metricsUnit("F-1", tactical.SideFriendly, true)},
		[]tactical.EntityState{
			metricsUnit("H-1", tactical.SideHostile, true),
			metricsUnit("H-2", tactical.SideHostile, true),
		},
	))

	m.ObserveDecision(1000, decisionWith(
		tactical.TargetAssignment{ShooterID: "F-1", TargetID: "H-1"},
	))

	// H-1 dies with credit; H-2 dies with no shot on record.
	m.ObserveSnapshot(metricsSnapshot(2000,
		[]tactical.EntityState{metricsUnit("F-1", tactical.SideFriendly, true)},
		[]tactical.EntityState{
			metricsUnit("H-1", tactical.SideHostile, false),
			metricsUnit("H-2", tactical.SideHostile, false),
		},
	))

	result := m.Finalize()
	require.Equal(t, 2, result.TotalHostileLosses)
	require.Equal(t, 50.0, result.HitContributionRate)

	total := 0.0
	for _, credit := range result.ShooterKillContribution {
		total += credit
	}
	// Σ credit equals credited losses, which never exceed total losses.
	require.InDelta(t, 1.0, total, 1e-9)
}

func TestKillCreditWindowExpiry(t *testing.T) {
	m := NewMetricsEvaluator(1000)

	m.ObserveSnapshot(metricsSnapshot(0,
		[]tactical.EntityState{metricsUnit("F-1", tactical.SideFriendly, true)},
		[]tactical.EntityState{metricsUnit("H-1", tactical.SideHostile, true)},
	))

	m.ObserveDecision(100, decisionWith(
		tactical.TargetAssignment{ShooterID: "F-1", TargetID: "H-1"},
	))

	// The loss lands long after the credit window closed.
	m.ObserveSnapshot(metricsSnapshot(50000,
		[]tactical.EntityState{metricsUnit("F-1", tactical.SideFriendly, true)},
		[]tactical.EntityState{metricsUnit("H-1", tactical.SideHostile, false)},
	))

	result := m.Finalize()
	require.Equal(t, 1, result.TotalHostileLosses)
	require.Equal(t, 0.0, result.HitContributionRate)
	require.Empty(t, result.ShooterKillContribution)
}

func TestUnknownDeadHostileEarnsNothing(t *testing.T) {
	m := NewMetricsEvaluator(DefaultKillCreditWindowMs)

	// First sighting is already dead: not a tracked loss.
	m.ObserveSnapshot(metricsSnapshot(0,
		[]tactical.EntityState{metricsUnit("F-1", tactical.SideFriendly, true)},
		[]tactical.EntityState{metricsUnit("H-1", tactical.SideHostile, false)},
	))

	result := m.Finalize()
	require.Equal(t, 0, result.TotalHostileLosses)
	require.Equal(t, 0.0, result.HitContributionRate)
}

func TestEmptyRunRates(t *testing.T) {
	m := NewMetricsEvaluator(DefaultKillCreditWindowMs)
	result := m.Finalize()
	require.Equal(t, 0, result.InitialFriendlyCount)
	require.Equal(t, 0.0, result.SurvivalRate)
	require.Equal(t, 0.0, result.HitContributionRate)
}

func TestInitialCountFixedAtFirstContact(t *testing.T) {
	m := NewMetricsEvaluator(DefaultKillCreditWindowMs)

	// Empty first frame does not initialize the baseline.
	m.ObserveSnapshot(metricsSnapshot(0, nil, nil))

	m.ObserveSnapshot(metricsSnapshot(1000,
		[]tactical.EntityState{
			metricsUnit("F-1", tactical.SideFriendly, true),
			metricsUnit("F-2", tactical.SideFriendly, true),
			metricsUnit("F-3", tactical.SideFriendly, true),
		}, nil))

	// Reinforcements later do not move the baseline.
	m.ObserveSnapshot(metricsSnapshot(2000,
		[]tactical.EntityState{
			metricsUnit("F-1", tactical.SideFriendly, true),
			metricsUnit("F-2", tactical.SideFriendly, true),
			metricsUnit("F-3", tactical.SideFriendly, true),
			metricsUnit("F-4", tactical.SideFriendly, true),
		}, nil))

	result := m.Finalize()
	require.Equal(t, 3, result.InitialFriendlyCount)
	require.Equal(t, 4, result.FinalFriendlyAlive)
}
