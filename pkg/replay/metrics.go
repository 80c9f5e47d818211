package replay

import (
	"github.com/windbluesea/tacsim-agent/pkg/tactical"
)

// DefaultKillCreditWindowMs is the sliding window inside which earlier
// fire assignments earn credit for a hostile loss.
const DefaultKillCreditWindowMs = 120000

// MetricsResult is the final scorecard of a replay.
type MetricsResult struct {
	InitialFriendlyCount    int
	FinalFriendlyAlive      int
	TotalHostileLosses      int
	SurvivalRate            float64
	HitContributionRate     float64
	ShooterKillContribution map[string]float64
}

type shotRecord struct {
	timestampMs int64
	shooterID   string
}

// MetricsEvaluator tracks alive state across snapshots and attributes
// hostile losses to the friendly shooters that recently engaged them.
type MetricsEvaluator struct {
	creditWindowMs int64
	initialized    bool

	friendlyAlive map[string]bool
	hostileAlive  map[string]bool
	shotsByTarget map[string][]shotRecord
	killCredit    map[string]float64

	initialFriendlyCount int
	finalFriendlyAlive   int
	totalHostileLosses   int
	creditedLosses       float64
}

// NewMetricsEvaluator creates an evaluator; non-positive windows fall
// back to the default.
func NewMetricsEvaluator(creditWindowMs int64) *MetricsEvaluator {
	if creditWindowMs <= 0 {
		creditWindowMs = DefaultKillCreditWindowMs
	}
	return &MetricsEvaluator{
		creditWindowMs: creditWindowMs,
		friendlyAlive:  make(map[string]bool),
		hostileAlive:   make(map[string]bool),
		shotsByTarget:  make(map[string][]shotRecord),
		killCredit:     make(map[string]float64),
	}
}

// ObserveSnapshot records friendly strength and detects hostile losses.
// A loss counts only for hostiles previously known alive; unknown
// entities that arrive dead earn nobody credit.
func (m *MetricsEvaluator) ObserveSnapshot(snapshot tactical.BattlefieldSnapshot) {
	if !m.initialized && len(snapshot.FriendlyUnits) > 0 {
		m.initialized = true
		m.initialFriendlyCount = len(snapshot.FriendlyUnits)
	}

	m.finalFriendlyAlive = 0
	for _, unit := range snapshot.FriendlyUnits {
		m.friendlyAlive[unit.ID] = unit.Alive
		if unit.Alive {
			m.finalFriendlyAlive++
		}
	}

	for _, unit := range snapshot.HostileUnits {
		wasAlive, known := m.hostileAlive[unit.ID]
		if !known {
			wasAlive = unit.Alive
		}

		if known && wasAlive && !unit.Alive {
			m.totalHostileLosses++
			m.creditKill(unit.ID, snapshot.TimestampMs)
		}

		m.hostileAlive[unit.ID] = unit.Alive
	}

	m.pruneShotHistory(snapshot.TimestampMs)
}

// creditKill splits one loss evenly across the unique shooters that
// engaged the target inside the credit window.
func (m *MetricsEvaluator) creditKill(targetID string, nowMs int64) {
	shots := m.shotsByTarget[targetID]
	if len(shots) == 0 {
		return
	}

	unique := make(map[string]struct{})
	for _, shot := range shots {
		if nowMs-shot.timestampMs <= m.creditWindowMs {
			unique[shot.shooterID] = struct{}{}
		}
	}
	if len(unique) == 0 {
		return
	}

	credit := 1.0 / float64(len(unique))
	for shooter := range unique {
		m.killCredit[shooter] += credit
	}
	m.creditedLosses++
}

// ObserveDecision records each assignment as a shot against its target.
func (m *MetricsEvaluator) ObserveDecision(timestampMs int64, decision tactical.DecisionPackage) {
	for _, assignment := range decision.Fire.Assignments {
		m.shotsByTarget[assignment.TargetID] = append(m.shotsByTarget[assignment.TargetID], shotRecord{
			timestampMs: timestampMs,
			shooterID:   assignment.ShooterID,
		})
	}
	m.pruneShotHistory(timestampMs)
}

// Finalize computes the rates. Credited losses never exceed total
// losses because shot history is pruned on every observation.
func (m *MetricsEvaluator) Finalize() MetricsResult {
	out := MetricsResult{
		InitialFriendlyCount:    m.initialFriendlyCount,
		FinalFriendlyAlive:      m.finalFriendlyAlive,
		TotalHostileLosses:      m.totalHostileLosses,
		ShooterKillContribution: make(map[string]float64, len(m.killCredit)),
	}
	for shooter, credit := range m.killCredit {
		out.ShooterKillContribution[shooter] = credit
	}

	if m.initialFriendlyCount > 0 {
		out.SurvivalRate = 100 * float64(m.finalFriendlyAlive) / float64(m.initialFriendlyCount)
	}
	if m.totalHostileLosses > 0 {
		out.HitContributionRate = 100 * m.creditedLosses / float64(m.totalHostileLosses)
	}
	return out
}

func (m *MetricsEvaluator) pruneShotHistory(nowMs int64) {
	for target, shots := range m.shotsByTarget {
		kept := shots[:0]
		for _, shot := range shots {
			if nowMs-shot.timestampMs <= m.creditWindowMs {
				kept = append(kept, shot)
			}
		}
		if len(kept) == 0 {
			delete(m.shotsByTarget, target)
		} else {
			m.shotsByTarget[target] = kept
		}
	}
}
