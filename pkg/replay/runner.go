package replay

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/windbluesea/tacsim-agent/pkg/dis"
	"github.com/windbluesea/tacsim-agent/pkg/pipeline"
	"github.com/windbluesea/tacsim-agent/pkg/tactical"
)

// Report is the aggregate outcome of driving one replay through the
// decision pipeline.
type Report struct {
	RunID        string
	ReplayFile   string
	Backend      string
	Frames       int
	Ticks        int
	Decisions    int
	CacheHits    int
	CacheHitRate float64
	AvgLatencyMs float64
	P95LatencyMs float64
	Metrics      MetricsResult
}

// Runner replays batches through an adapter + pipeline pair and scores
// the run.
type Runner struct {
	Pipeline *pipeline.AgentPipeline
	Log      *MissionLog
	Metrics  *MetricsEvaluator
}

// NewRunner wires a runner around a pipeline with the default credit
// window.
func NewRunner(p *pipeline.AgentPipeline, log *MissionLog) *Runner {
	return &Runner{
		Pipeline: p,
		Log:      log,
		Metrics:  NewMetricsEvaluator(DefaultKillCreditWindowMs),
	}
}

// Run ingests each batch, polls a snapshot, and runs one decision tick
// per frame, measuring per-tick latency.
func (r *Runner) Run(ctx context.Context, batches []dis.Batch) (Report, error) {
	if len(batches) == 0 {
		return Report{}, fmt.Errorf("replay: no frames to run")
	}

	adapter := dis.NewAdapter()
	hostileAlive := make(map[string]bool)

	var latencies []float64
	report := Report{Frames: len(batches)}
	if r.Log != nil {
		report.RunID = r.Log.RunID()
	}

	for _, batch := range batches {
		adapter.Ingest(batch)
		snapshot, ok := adapter.Poll()
		if !ok {
			continue
		}

		r.Metrics.ObserveSnapshot(snapshot)
		r.logHostileLosses(snapshot, hostileAlive)

		start := time.Now()
		pkg := r.Pipeline.Tick(ctx, snapshot, adapter.DrainEvents())
		latencies = append(latencies, float64(time.Since(start).Microseconds())/1000.0)

		r.Metrics.ObserveDecision(snapshot.TimestampMs, pkg)

		report.Ticks++
		report.Decisions++
		if pkg.FromCache {
			report.CacheHits++
			if r.Log != nil {
				r.Log.LogCacheHit(snapshot.TimestampMs)
			}
		}

		if r.Log != nil {
			r.Log.LogTick(snapshot.TimestampMs, pkg.Fire.Summary, pkg.Maneuver.Summary)
			for _, a := range pkg.Fire.Assignments {
				r.Log.LogAssignment(snapshot.TimestampMs, a.ShooterID, a.TargetID, a.WeaponName, string(a.Tactic))
			}
			for _, m := range pkg.Maneuver.Actions {
				r.Log.LogManeuver(snapshot.TimestampMs, m.UnitID, string(m.ActionName))
			}
		}
	}

	if report.Decisions == 0 {
		return Report{}, fmt.Errorf("replay: no decisions produced")
	}

	report.CacheHitRate = 100 * float64(report.CacheHits) / float64(report.Decisions)
	report.AvgLatencyMs, report.P95LatencyMs = latencyStats(latencies)
	report.Metrics = r.Metrics.Finalize()
	return report, nil
}

// logHostileLosses narrates hostiles flipping from alive to dead.
func (r *Runner) logHostileLosses(snapshot tactical.BattlefieldSnapshot, alive map[string]bool) {
	for _, unit := range snapshot.HostileUnits {
		if wasAlive, known := alive[unit.ID]; known && wasAlive && !unit.Alive && r.Log != nil {
			r.Log.LogHostileLoss(snapshot.TimestampMs, unit.ID)
		}
		alive[unit.ID] = unit.Alive
	}
}

func latencyStats(latencies []float64) (avg, p95 float64) {
	if len(latencies) == 0 {
		return 0, 0
	}
	sorted := append([]float64(nil), latencies...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	avg = sum / float64(len(sorted))

	idx := int(float64(len(sorted)) * 0.95)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return avg, sorted[idx]
}
