package dis

import (
	"fmt"
	"sort"

	"github.com/windbluesea/tacsim-agent/pkg/tactical"
)

// Adapter owns the entity table reconstructed from ingested PDU batches
// and exposes value-copy snapshots to the pipeline. One adapter serves
// one pipeline instance; it is not safe for concurrent use.
type Adapter struct {
	entities       map[string]tactical.EntityState
	env            tactical.EnvironmentState
	latestTsMs     int64
	dirty          bool
	bufferedEvents []tactical.EventRecord
}

// NewAdapter creates an empty adapter with the default environment.
func NewAdapter() *Adapter {
	return &Adapter{
		entities: make(map[string]tactical.EntityState),
		env:      tactical.DefaultEnvironment(),
	}
}

// Ingest upserts entity updates, buffers fire events, and advances the
// latest timestamp to the maximum seen.
func (a *Adapter) Ingest(batch Batch) {
	if batch.Env != nil {
		a.env = *batch.Env
		a.dirty = true
	}

	for _, pdu := range batch.EntityUpdates {
		a.upsertEntity(pdu)
		if pdu.TimestampMs > a.latestTsMs {
			a.latestTsMs = pdu.TimestampMs
		}
		a.dirty = true
	}

	for _, fire := range batch.FireEvents {
		a.bufferedEvents = append(a.bufferedEvents, tactical.EventRecord{
			TimestampMs: fire.TimestampMs,
			Type:        tactical.EventWeaponFire,
			ActorID:     fire.ShooterID,
			Pose:        fire.Origin,
			Message:     fmt.Sprintf("武器=%s，目标=%s", fire.WeaponName, fire.TargetID),
		})
		if fire.TimestampMs > a.latestTsMs {
			a.latestTsMs = fire.TimestampMs
		}
		a.dirty = true
	}

	if batch.TimestampMs > a.latestTsMs {
		a.latestTsMs = batch.TimestampMs
	}
}

// upsertEntity overwrites the dynamic fields of a known entity or
// creates a new one. An existing loadout is preserved; a new entity
// gets the default loadout for its type.
func (a *Adapter) upsertEntity(pdu EntityPdu) {
	entity, known := a.entities[pdu.EntityID]
	if !known {
		entity = tactical.EntityState{
			ID:      pdu.EntityID,
			Weapons: DefaultWeapons(pdu.Type),
		}
	}

	entity.Side = pdu.Side
	entity.Type = pdu.Type
	entity.Pose = pdu.Pose
	entity.SpeedMps = pdu.SpeedMps
	entity.HeadingDeg = pdu.HeadingDeg
	entity.Alive = pdu.Alive
	entity.ThreatLevel = pdu.ThreatLevel

	a.entities[pdu.EntityID] = entity
}

// FeedMockFrame bulk-replaces the adapter state with the given snapshot.
// Entities are taken verbatim; no default loadout is provisioned.
func (a *Adapter) FeedMockFrame(snapshot tactical.BattlefieldSnapshot) {
	a.entities = make(map[string]tactical.EntityState, len(snapshot.FriendlyUnits)+len(snapshot.HostileUnits))
	for _, unit := range snapshot.FriendlyUnits {
		a.entities[unit.ID] = unit
	}
	for _, unit := range snapshot.HostileUnits {
		a.entities[unit.ID] = unit
	}
	a.env = snapshot.Env
	a.latestTsMs = snapshot.TimestampMs
	a.dirty = true
}

// Poll returns a snapshot only when new data has been ingested since the
// last poll, and clears the dirty flag.
func (a *Adapter) Poll() (tactical.BattlefieldSnapshot, bool) {
	if !a.dirty {
		return tactical.BattlefieldSnapshot{}, false
	}
	a.dirty = false
	return a.buildSnapshot(), true
}

// DrainEvents returns and clears the buffered fire events.
func (a *Adapter) DrainEvents() []tactical.EventRecord {
	out := a.bufferedEvents
	a.bufferedEvents = nil
	return out
}

// buildSnapshot partitions entities by side, dropping neutrals. Units
// are sorted by id so a fixed ingestion sequence yields a fixed order.
func (a *Adapter) buildSnapshot() tactical.BattlefieldSnapshot {
	snap := tactical.BattlefieldSnapshot{
		TimestampMs: a.latestTsMs,
		Env:         a.env,
	}

	for _, entity := range a.entities {
		switch entity.Side {
		case tactical.SideFriendly:
			snap.FriendlyUnits = append(snap.FriendlyUnits, entity)
		case tactical.SideHostile:
			snap.HostileUnits = append(snap.HostileUnits, entity)
		}
	}

	sort.Slice(snap.FriendlyUnits, func(i, j int) bool {
		return snap.FriendlyUnits[i].ID < snap.FriendlyUnits[j].ID
	})
	sort.Slice(snap.HostileUnits, func(i, j int) bool {
		return snap.HostileUnits[i].ID < snap.HostileUnits[j].ID
	})
	return snap
}
