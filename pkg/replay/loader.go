// Package replay loads recorded scenarios, drives them through the
// decision pipeline, and scores the outcome.
package replay

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/windbluesea/tacsim-agent/pkg/dis"
	"github.com/windbluesea/tacsim-agent/pkg/tactical"
)

// FormatError reports a malformed text scenario record. Line is 1-based.
type FormatError struct {
	Line   int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("replay: %s at line %d", e.Reason, e.Line)
}

func formatErrorf(line int, format string, args ...interface{}) *FormatError {
	return &FormatError{Line: line, Reason: fmt.Sprintf(format, args...)}
}

// Loader parses the text scenario format: one record per line, fields
// comma-separated, '#' comments and blank lines skipped.
type Loader struct{}

// LoadBatches reads a scenario file and returns its PDU batches keyed
// by timestamp, ascending.
func (l Loader) LoadBatches(path string) ([]dis.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: open scenario %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	byTimestamp := make(map[int64]*dis.Batch)
	batchFor := func(ts int64) *dis.Batch {
		b := byTimestamp[ts]
		if b == nil {
			b = &dis.Batch{TimestampMs: ts}
			byTimestamp[ts] = b
		}
		return b
	}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		switch fields[0] {
		case "ENV":
			if len(fields) != 5 {
				return nil, formatErrorf(lineNo, "ENV record needs 5 fields, got %d", len(fields))
			}
			ts, err := parseInt64(fields[1], "timestamp", lineNo)
			if err != nil {
				return nil, err
			}
			env := tactical.EnvironmentState{}
			if env.VisibilityM, err = parseFloat(fields[2], "visibility_m", lineNo); err != nil {
				return nil, err
			}
			if env.WeatherRisk, err = parseFloat(fields[3], "weather_risk", lineNo); err != nil {
				return nil, err
			}
			if env.TerrainRisk, err = parseFloat(fields[4], "terrain_risk", lineNo); err != nil {
				return nil, err
			}
			batchFor(ts).Env = &env

		case "ENTITY":
			if len(fields) != 12 {
				return nil, formatErrorf(lineNo, "ENTITY record needs 12 fields, got %d", len(fields))
			}
			pdu, err := parseEntityRecord(fields, lineNo)
			if err != nil {
				return nil, err
			}
			batch := batchFor(pdu.TimestampMs)
			batch.EntityUpdates = append(batch.EntityUpdates, pdu)

		case "FIRE":
			if len(fields) != 8 {
				return nil, formatErrorf(lineNo, "FIRE record needs 8 fields, got %d", len(fields))
			}
			pdu, err := parseFireRecord(fields, lineNo)
			if err != nil {
				return nil, err
			}
			batch := batchFor(pdu.TimestampMs)
			batch.FireEvents = append(batch.FireEvents, pdu)

		default:
			return nil, formatErrorf(lineNo, "unknown record type %q", fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("replay: read scenario %s: %w", path, err)
	}

	batches := make([]dis.Batch, 0, len(byTimestamp))
	for _, b := range byTimestamp {
		batches = append(batches, *b)
	}
	sort.Slice(batches, func(i, j int) bool {
		return batches[i].TimestampMs < batches[j].TimestampMs
	})
	return batches, nil
}

func parseEntityRecord(fields []string, lineNo int) (dis.EntityPdu, error) {
	var pdu dis.EntityPdu
	var err error

	if pdu.TimestampMs, err = parseInt64(fields[1], "timestamp", lineNo); err != nil {
		return pdu, err
	}
	pdu.EntityID = fields[2]

	side, ok := tactical.SideFromString(fields[3])
	if !ok {
		return pdu, formatErrorf(lineNo, "invalid side %q", fields[3])
	}
	pdu.Side = side

	unitType, ok := tactical.UnitTypeFromString(fields[4])
	if !ok {
		return pdu, formatErrorf(lineNo, "invalid unit type %q", fields[4])
	}
	pdu.Type = unitType

	if pdu.Pose.X, err = parseFloat(fields[5], "x", lineNo); err != nil {
		return pdu, err
	}
	if pdu.Pose.Y, err = parseFloat(fields[6], "y", lineNo); err != nil {
		return pdu, err
	}
	if pdu.Pose.Z, err = parseFloat(fields[7], "z", lineNo); err != nil {
		return pdu, err
	}
	if pdu.SpeedMps, err = parseFloat(fields[8], "speed_mps", lineNo); err != nil {
		return pdu, err
	}
	if pdu.HeadingDeg, err = parseFloat(fields[9], "heading_deg", lineNo); err != nil {
		return pdu, err
	}
	if pdu.Alive, err = parseBool(fields[10], "alive", lineNo); err != nil {
		return pdu, err
	}
	if pdu.ThreatLevel, err = parseFloat(fields[11], "threat_level", lineNo); err != nil {
		return pdu, err
	}
	return pdu, nil
}

func parseFireRecord(fields []string, lineNo int) (dis.FirePdu, error) {
	var pdu dis.FirePdu
	var err error

	if pdu.TimestampMs, err = parseInt64(fields[1], "timestamp", lineNo); err != nil {
		return pdu, err
	}
	pdu.ShooterID = fields[2]
	pdu.TargetID = fields[3]
	pdu.WeaponName = fields[4]

	if pdu.Origin.X, err = parseFloat(fields[5], "x", lineNo); err != nil {
		return pdu, err
	}
	if pdu.Origin.Y, err = parseFloat(fields[6], "y", lineNo); err != nil {
		return pdu, err
	}
	if pdu.Origin.Z, err = parseFloat(fields[7], "z", lineNo); err != nil {
		return pdu, err
	}
	return pdu, nil
}

func parseInt64(text, field string, lineNo int) (int64, error) {
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, formatErrorf(lineNo, "invalid int64 for %s: %q", field, text)
	}
	return v, nil
}

func parseFloat(text, field string, lineNo int) (float64, error) {
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, formatErrorf(lineNo, "invalid float for %s: %q", field, text)
	}
	return v, nil
}

func parseBool(text, field string, lineNo int) (bool, error) {
	switch text {
	case "1", "true", "TRUE":
		return true, nil
	case "0", "false", "FALSE":
		return false, nil
	}
	return false, formatErrorf(lineNo, "invalid bool for %s: %q", field, text)
}

// IsBinaryCapture reports whether the path looks like a DIS binary
// capture rather than a text scenario.
func IsBinaryCapture(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bin", ".dis", ".disbin":
		return true
	}
	return false
}

// LoadAny loads a replay file, selecting the binary parser or the text
// loader by extension.
func LoadAny(path string) ([]dis.Batch, error) {
	if IsBinaryCapture(path) {
		return dis.Parser{}.ParseFile(path)
	}
	return Loader{}.LoadBatches(path)
}
