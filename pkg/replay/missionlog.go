package replay

import (
	"fmt"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// Mission event types
const (
	MissionEventTick        = "tick"
	MissionEventAssignment  = "assignment"
	MissionEventManeuver    = "maneuver"
	MissionEventCacheHit    = "cache_hit"
	MissionEventHostileLoss = "hostile_loss"
)

// Color definitions for the mission log
var (
	colorTick     = color.New(color.FgHiBlack)
	colorFire     = color.New(color.FgRed)
	colorManeuver = color.New(color.FgBlue)
	colorCache    = color.New(color.FgYellow)
	colorLoss     = color.New(color.FgGreen, color.Bold)
)

// MissionEvent is one logged replay event.
type MissionEvent struct {
	TimestampMs int64
	Type        string
	Message     string
}

// MissionLog accumulates the narrated event stream of one replay run.
// It prints colored lines as events arrive when verbose, and keeps the
// full buffer, which Events returns.
type MissionLog struct {
	mu      sync.Mutex
	runID   string
	started time.Time
	verbose bool
	events  []MissionEvent
}

// NewMissionLog creates a log with a fresh run ID.
func NewMissionLog(verbose bool) *MissionLog {
	return &MissionLog{
		runID:   uuid.New().String(),
		started: time.Now(),
		verbose: verbose,
	}
}

// RunID returns the unique identifier of this run.
func (l *MissionLog) RunID() string {
	return l.runID
}

// LogTick records one decision cycle.
func (l *MissionLog) LogTick(tsMs int64, fireSummary, maneuverSummary string) {
	l.log(MissionEventTick, tsMs, colorTick, fmt.Sprintf("%s | %s", fireSummary, maneuverSummary))
}

// LogAssignment records one fire assignment.
func (l *MissionLog) LogAssignment(tsMs int64, shooter, target, weapon string, tactic string) {
	l.log(MissionEventAssignment, tsMs, colorFire,
		fmt.Sprintf("射手=%s 目标=%s 武器=%s 战术=%s", shooter, target, weapon, tactic))
}

// LogManeuver records one maneuver order.
func (l *MissionLog) LogManeuver(tsMs int64, unit, action string) {
	l.log(MissionEventManeuver, tsMs, colorManeuver, fmt.Sprintf("单位=%s 动作=%s", unit, action))
}

// LogCacheHit records a short-circuited tick.
func (l *MissionLog) LogCacheHit(tsMs int64) {
	l.log(MissionEventCacheHit, tsMs, colorCache, "命中决策缓存")
}

// LogHostileLoss records a confirmed hostile loss.
func (l *MissionLog) LogHostileLoss(tsMs int64, targetID string) {
	l.log(MissionEventHostileLoss, tsMs, colorLoss, fmt.Sprintf("敌方损失=%s", targetID))
}

// Events returns a copy of the buffered event stream.
func (l *MissionLog) Events() []MissionEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]MissionEvent(nil), l.events...)
}

func (l *MissionLog) log(eventType string, tsMs int64, c *color.Color, message string) {
	l.mu.Lock()
	l.events = append(l.events, MissionEvent{TimestampMs: tsMs, Type: eventType, Message: message})
	l.mu.Unlock()

	if l.verbose {
		_, _ = c.Printf("[t=%d] %-12s %s\n", tsMs, eventType, message)
	}
}
