// Package memory keeps a time-windowed record of tactical events and
// renders them as context for the ranker.
package memory

import (
	"fmt"
	"strings"

	"github.com/windbluesea/tacsim-agent/pkg/tactical"
)

// DefaultRetentionMs bounds how long events stay in memory.
const DefaultRetentionMs = 600000

// EventMemory is a retention-bounded queue of event records. Append and
// front-trim are O(1) amortized; the functional bound is temporal.
type EventMemory struct {
	retentionMs int64
	events      []tactical.EventRecord
}

// New creates a memory with the given retention; non-positive retention
// falls back to the default.
func New(retentionMs int64) *EventMemory {
	if retentionMs <= 0 {
		retentionMs = DefaultRetentionMs
	}
	return &EventMemory{retentionMs: retentionMs}
}

// AddEvent appends one event and trims expired entries from the front.
func (m *EventMemory) AddEvent(event tactical.EventRecord) {
	m.events = append(m.events, event)
	m.trim(event.TimestampMs)
}

// AddEvents appends a batch of events.
func (m *EventMemory) AddEvents(events []tactical.EventRecord) {
	for _, event := range events {
		m.AddEvent(event)
	}
}

// QueryRecent returns the events within the window, most recent first.
func (m *EventMemory) QueryRecent(nowMs, windowMs int64) []tactical.EventRecord {
	var out []tactical.EventRecord
	for i := len(m.events) - 1; i >= 0; i-- {
		if nowMs-m.events[i].TimestampMs > windowMs {
			break
		}
		out = append(out, m.events[i])
	}
	return out
}

// LastEventByType returns the most recent event of the given type inside
// the window, if any.
func (m *EventMemory) LastEventByType(t tactical.EventType, nowMs, windowMs int64) (tactical.EventRecord, bool) {
	for i := len(m.events) - 1; i >= 0; i-- {
		if nowMs-m.events[i].TimestampMs > windowMs {
			break
		}
		if m.events[i].Type == t {
			return m.events[i], true
		}
	}
	return tactical.EventRecord{}, false
}

// BuildContext renders the recent events as newline-joined lines of the
// form "[t=<ts>] <type label>: <message>".
func (m *EventMemory) BuildContext(nowMs, windowMs int64) string {
	recent := m.QueryRecent(nowMs, windowMs)
	var b strings.Builder
	for _, event := range recent {
		fmt.Fprintf(&b, "[t=%d] %s: %s\n", event.TimestampMs, event.Type.Label(), event.Message)
	}
	return b.String()
}

// Len returns the number of retained events.
func (m *EventMemory) Len() int {
	return len(m.events)
}

func (m *EventMemory) trim(nowMs int64) {
	start := 0
	for start < len(m.events) && nowMs-m.events[start].TimestampMs > m.retentionMs {
		start++
	}
	if start > 0 {
		m.events = m.events[start:]
	}
}
