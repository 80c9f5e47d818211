package dis

import (
	"fmt"

	"github.com/windbluesea/tacsim-agent/pkg/tactical"
)

// PDU type discriminators from the wire header.
const (
	pduTypeEntityState = 1
	pduTypeFire        = 2
)

// Wire size floors. A header is always 12 bytes; bodies below these
// limits cannot carry the fields we decode.
const (
	headerLength       = 12
	minEntityPduLength = 88
	minFirePduLength   = 64
)

// Header is the 12-byte big-endian header that opens every PDU.
type Header struct {
	ProtocolVersion uint8
	ExerciseID      uint8
	PduType         uint8
	ProtocolFamily  uint8
	Timestamp       uint32
	Length          uint16
	Padding         uint16
}

// EntityPdu is a decoded entity-state PDU.
type EntityPdu struct {
	TimestampMs int64
	EntityID    string
	Side        tactical.Side
	Type        tactical.UnitType
	Pose        tactical.Pose
	SpeedMps    float64
	HeadingDeg  float64
	Alive       bool
	ThreatLevel float64
}

// FirePdu is a decoded weapon-fire PDU.
type FirePdu struct {
	TimestampMs int64
	ShooterID   string
	TargetID    string
	WeaponName  string
	Origin      tactical.Pose
}

// Batch groups the PDUs that share one wire timestamp. Env is set only
// by the text scenario loader; binary captures carry no environment.
type Batch struct {
	TimestampMs   int64
	EntityUpdates []EntityPdu
	FireEvents    []FirePdu
	Env           *tactical.EnvironmentState
}

// ProtocolError reports a malformed binary capture. Offset is the byte
// position at which the fault was detected.
type ProtocolError struct {
	Offset int
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("dis: %s at byte offset %d", e.Reason, e.Offset)
}

func protocolErrorf(offset int, format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}
