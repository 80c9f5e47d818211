package dis

import "github.com/windbluesea/tacsim-agent/pkg/tactical"

// DefaultWeapons returns the single default weapon provisioned for an
// entity that arrives over the wire without a loadout.
func DefaultWeapons(t tactical.UnitType) []tactical.WeaponState {
	switch t {
	case tactical.UnitInfantry:
		return []tactical.WeaponState{{
			Name:             "rifle",
			RangeM:           800,
			KillProbability:  0.25,
			Ammo:             200,
			PreferredTargets: []tactical.UnitType{tactical.UnitInfantry},
		}}
	case tactical.UnitArmor:
		return []tactical.WeaponState{{
			Name:             "tank_gun",
			RangeM:           2500,
			KillProbability:  0.65,
			Ammo:             30,
			PreferredTargets: []tactical.UnitType{tactical.UnitArmor, tactical.UnitArtillery, tactical.UnitCommand},
		}}
	case tactical.UnitArtillery:
		return []tactical.WeaponState{{
			Name:             "howitzer",
			RangeM:           8000,
			KillProbability:  0.55,
			Ammo:             20,
			PreferredTargets: []tactical.UnitType{tactical.UnitArmor, tactical.UnitArtillery, tactical.UnitCommand},
		}}
	case tactical.UnitAirDefense:
		return []tactical.WeaponState{{
			Name:             "sam",
			RangeM:           3500,
			KillProbability:  0.60,
			Ammo:             12,
			PreferredTargets: []tactical.UnitType{tactical.UnitAirDefense},
		}}
	}
	// Empty preference set: unrestricted.
	return []tactical.WeaponState{{
		Name:            "generic",
		RangeM:          1000,
		KillProbability: 0.20,
		Ammo:            50,
	}}
}
