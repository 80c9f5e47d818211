package dis

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/windbluesea/tacsim-agent/pkg/tactical"
)

// Base threat by unit type; the final threat level adds a speed term and
// is clamped into [0,1].
var baseThreat = map[tactical.UnitType]float64{
	tactical.UnitArmor:      0.9,
	tactical.UnitArtillery:  0.85,
	tactical.UnitAirDefense: 0.8,
	tactical.UnitCommand:    0.75,
	tactical.UnitInfantry:   0.55,
	tactical.UnitUnknown:    0.3,
}

// Parser decodes DIS-style binary captures into timestamp-keyed batches.
type Parser struct{}

// ParseFile reads and decodes a binary capture from disk.
func (p Parser) ParseFile(path string) ([]Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dis: read capture %s: %w", path, err)
	}
	return p.ParseBytes(data)
}

// ParseBytes walks the buffer with a cursor, decoding one PDU per header
// and grouping the results by wire timestamp, ascending.
func (p Parser) ParseBytes(data []byte) ([]Batch, error) {
	byTimestamp := make(map[uint32]*Batch)

	offset := 0
	for offset < len(data) {
		if len(data)-offset < headerLength {
			return nil, protocolErrorf(offset, "incomplete header: %d bytes remain", len(data)-offset)
		}

		h := parseHeader(data[offset:])
		if int(h.Length) < headerLength {
			return nil, protocolErrorf(offset, "declared PDU length %d < %d", h.Length, headerLength)
		}
		if offset+int(h.Length) > len(data) {
			return nil, protocolErrorf(offset, "declared PDU length %d exceeds buffer", h.Length)
		}

		batch := byTimestamp[h.Timestamp]
		if batch == nil {
			batch = &Batch{TimestampMs: int64(h.Timestamp)}
			byTimestamp[h.Timestamp] = batch
		}

		pdu := data[offset : offset+int(h.Length)]
		switch h.PduType {
		case pduTypeEntityState:
			entity, err := parseEntityStatePdu(pdu, offset, h)
			if err != nil {
				return nil, err
			}
			batch.EntityUpdates = append(batch.EntityUpdates, entity)
		case pduTypeFire:
			fire, err := parseFirePdu(pdu, offset, h)
			if err != nil {
				return nil, err
			}
			batch.FireEvents = append(batch.FireEvents, fire)
		default:
			return nil, protocolErrorf(offset, "unsupported PDU type %d", h.PduType)
		}

		offset += int(h.Length)
	}

	batches := make([]Batch, 0, len(byTimestamp))
	for _, batch := range byTimestamp {
		batches = append(batches, *batch)
	}
	sort.Slice(batches, func(i, j int) bool {
		return batches[i].TimestampMs < batches[j].TimestampMs
	})
	return batches, nil
}

func parseHeader(b []byte) Header {
	return Header{
		ProtocolVersion: b[0],
		ExerciseID:      b[1],
		PduType:         b[2],
		ProtocolFamily:  b[3],
		Timestamp:       binary.BigEndian.Uint32(b[4:]),
		Length:          binary.BigEndian.Uint16(b[8:]),
		Padding:         binary.BigEndian.Uint16(b[10:]),
	}
}

// parseEntityStatePdu decodes the entity-state body. All field offsets
// are relative to the PDU start; trailing bytes up to Length are ignored.
func parseEntityStatePdu(pdu []byte, offset int, h Header) (EntityPdu, error) {
	if len(pdu) < minEntityPduLength {
		return EntityPdu{}, protocolErrorf(offset, "entity state PDU too short: %d bytes", len(pdu))
	}

	out := EntityPdu{
		TimestampMs: int64(h.Timestamp),
		EntityID:    parseEntityID(pdu[12:]),
		Side:        forceIDToSide(pdu[18]),
		Type:        parseUnitType(pdu[20:]),
	}

	vx := float64(readF32(pdu[36:]))
	vy := float64(readF32(pdu[40:]))
	vz := float64(readF32(pdu[44:]))
	out.SpeedMps = math.Sqrt(vx*vx + vy*vy + vz*vz)

	out.Pose = tactical.Pose{
		X: readF64(pdu[48:]),
		Y: readF64(pdu[56:]),
		Z: readF64(pdu[64:]),
	}

	psiRad := float64(readF32(pdu[72:]))
	out.HeadingDeg = psiRad * (180.0 / math.Pi)

	appearance := binary.BigEndian.Uint32(pdu[84:])
	damage := (appearance >> 3) & 0x3
	out.Alive = damage != 3

	out.ThreatLevel = tactical.Clamp01(baseThreat[out.Type] + 0.01*out.SpeedMps)
	return out, nil
}

// parseFirePdu decodes the fire body. The wire carries no munition name,
// so the weapon defaults to "munition".
func parseFirePdu(pdu []byte, offset int, h Header) (FirePdu, error) {
	if len(pdu) < minFirePduLength {
		return FirePdu{}, protocolErrorf(offset, "fire PDU too short: %d bytes", len(pdu))
	}

	return FirePdu{
		TimestampMs: int64(h.Timestamp),
		ShooterID:   parseEntityID(pdu[12:]),
		TargetID:    parseEntityID(pdu[18:]),
		WeaponName:  "munition",
		Origin: tactical.Pose{
			X: readF64(pdu[40:]),
			Y: readF64(pdu[48:]),
			Z: readF64(pdu[56:]),
		},
	}, nil
}

// parseEntityID renders the site-application-entity triple as "s-a-e".
func parseEntityID(b []byte) string {
	site := binary.BigEndian.Uint16(b[0:])
	app := binary.BigEndian.Uint16(b[2:])
	entity := binary.BigEndian.Uint16(b[4:])
	return fmt.Sprintf("%d-%d-%d", site, app, entity)
}

func forceIDToSide(forceID byte) tactical.Side {
	switch forceID {
	case 1:
		return tactical.SideFriendly
	case 2:
		return tactical.SideHostile
	default:
		return tactical.SideNeutral
	}
}

// parseUnitType maps the 7-byte entity-type record (kind, domain,
// country, category, subcategory, specific, extra) onto a unit type.
func parseUnitType(b []byte) tactical.UnitType {
	kind := b[0]
	domain := b[1]
	category := b[4]

	if kind != 1 {
		return tactical.UnitUnknown
	}
	if domain == 1 {
		switch {
		case category <= 3:
			return tactical.UnitArmor
		case category <= 6:
			return tactical.UnitArtillery
		case category <= 9:
			return tactical.UnitInfantry
		}
	}
	if domain == 2 || domain == 4 {
		return tactical.UnitAirDefense
	}
	return tactical.UnitUnknown
}

func readF32(b []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b))
}

func readF64(b []byte) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}
