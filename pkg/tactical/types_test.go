package tactical

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Pose
		expected float64
	}{
		{"same point", Pose{1, 2, 3}, Pose{1, 2, 3}, 0},
		{"pythagorean", Pose{0, 0, 0}, Pose{3, 4, 0}, 5},
		{"3d", Pose{0, 0, 0}, Pose{2, 3, 6}, 7},
		{"negative coords", Pose{-3, -4, 0}, Pose{0, 0, 0}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.expected, Distance(tt.a, tt.b), 1e-9)
		})
	}
}

func TestClamp01(t *testing.T) {
	require.Equal(t, 0.0, Clamp01(-0.5))
	require.Equal(t, 1.0, Clamp01(1.5))
	require.Equal(t, 0.42, Clamp01(0.42))
}

func TestWeaponPrefers(t *testing.T) {
	restricted := WeaponState{PreferredTargets: []UnitType{UnitArmor, UnitArtillery}}
	require.True(t, restricted.Prefers(UnitArmor))
	require.False(t, restricted.Prefers(UnitInfantry))

	// Empty preference set prefers everything.
	open := WeaponState{}
	require.True(t, open.Prefers(UnitInfantry))
	require.True(t, open.Prefers(UnitUnknown))
}

func TestDecisionPackageClone(t *testing.T) {
	pkg := DecisionPackage{
		Fire: FireDecision{
			Threats:     []ThreatEstimate{{TargetID: "H-1", Index: 90}},
			Assignments: []TargetAssignment{{ShooterID: "F-1", TargetID: "H-1", Score: 1}},
			Summary:     "s",
		},
		Maneuver: ManeuverDecision{
			Actions: []ManeuverAction{{UnitID: "F-1", Path: []Pose{{0, 0, 0}, {10, 0, 0}}}},
		},
	}

	clone := pkg.Clone()
	clone.Fire.Assignments[0].ShooterID = "mutated"
	clone.Maneuver.Actions[0].Path[0].X = 99
	clone.FromCache = true

	require.Equal(t, "F-1", pkg.Fire.Assignments[0].ShooterID)
	require.Equal(t, 0.0, pkg.Maneuver.Actions[0].Path[0].X)
	require.False(t, pkg.FromCache)
}

func TestSideFromString(t *testing.T) {
	side, ok := SideFromString("friendly")
	require.True(t, ok)
	require.Equal(t, SideFriendly, side)

	_, ok = SideFromString("Friendly") // case-sensitive
	require.False(t, ok)

	_, ok = SideFromString("martian")
	require.False(t, ok)
}

func TestUnitTypeFromString(t *testing.T) {
	tests := []struct {
		in       string
		expected UnitType
		ok       bool
	}{
		{"infantry", UnitInfantry, true},
		{"armor", UnitArmor, true},
		{"artillery", UnitArtillery, true},
		{"air_defense", UnitAirDefense, true},
		{"command", UnitCommand, true},
		{"tank", UnitUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := UnitTypeFromString(tt.in)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.expected, got)
		})
	}
}

func TestEventTypeLabel(t *testing.T) {
	require.Equal(t, "武器开火", EventWeaponFire.Label())
	require.Equal(t, "战术标签", EventTacticalTag.Label())
	require.Equal(t, "未知事件", EventType("bogus").Label())
}
