package replay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/windbluesea/tacsim-agent/pkg/decision"
	"github.com/windbluesea/tacsim-agent/pkg/dis"
	"github.com/windbluesea/tacsim-agent/pkg/inference"
	"github.com/windbluesea/tacsim-agent/pkg/pipeline"
	"github.com/windbluesea/tacsim-agent/pkg/tactical"
)

func newTestRunner() *Runner {
	agent := pipeline.New(
		pipeline.Config{CacheTTLMs: 3000, MemoryWindowMs: 5 * 60 * 1000},
		decision.NewFireControlEngine(decision.DefaultFireConfig()),
		decision.NewManeuverEngine(decision.DefaultManeuverConfig()),
		inference.New(inference.DefaultConfig()),
	)
	return NewRunner(agent, NewMissionLog(false))
}

func runnerEntity(id string, side tactical.Side, x float64, alive bool, ts int64) dis.EntityPdu {
	return dis.EntityPdu{
		TimestampMs: ts,
		EntityID:    id,
		Side:        side,
		Type:        tactical.UnitArmor,
		Pose:        tactical.Pose{X: x},
		Alive:       alive,
		ThreatLevel: 0.8,
	}
}

func TestRunnerEndToEnd(t *testing.T) {
	batches := []dis.Batch{
		{
			TimestampMs: 1000,
			EntityUpdates: []dis.EntityPdu{
				runnerEntity("F-1", tactical.SideFriendly, 0, true, 1000),
				runnerEntity("H-1", tactical.SideHostile, 900, true, 1000),
			},
		},
		{
			TimestampMs: 2000,
			EntityUpdates: []dis.EntityPdu{
				runnerEntity("F-1", tactical.SideFriendly, 10, true, 2000),
				runnerEntity("H-1", tactical.SideHostile, 900, false, 2000),
			},
		},
	}

	runner := newTestRunner()
	report, err := runner.Run(context.Background(), batches)
	require.NoError(t, err)

	require.Equal(t, 2, report.Frames)
	require.Equal(t, 2, report.Ticks)
	require.Equal(t, 2, report.Decisions)
	require.NotEmpty(t, report.RunID)

	// F-1 engaged H-1 on the first tick and the loss landed inside the
	// credit window.
	require.Equal(t, 1, report.Metrics.TotalHostileLosses)
	require.Equal(t, 100.0, report.Metrics.HitContributionRate)
	require.InDelta(t, 1.0, report.Metrics.ShooterKillContribution["F-1"], 1e-9)
	require.Equal(t, 100.0, report.Metrics.SurvivalRate)

	// The mission log narrated the loss.
	var lossEvents int
	for _, event := range runner.Log.Events() {
		if event.Type == MissionEventHostileLoss {
			lossEvents++
		}
	}
	require.Equal(t, 1, lossEvents)
}

func TestRunnerCacheHitOnRepeatedFrame(t *testing.T) {
	frame := dis.Batch{
		TimestampMs: 1000,
		EntityUpdates: []dis.EntityPdu{
			runnerEntity("F-1", tactical.SideFriendly, 0, true, 1000),
			runnerEntity("H-1", tactical.SideHostile, 900, true, 1000),
		},
	}
	repeat := frame
	repeat.TimestampMs = 1500
	repeat.EntityUpdates = []dis.EntityPdu{
		runnerEntity("F-1", tactical.SideFriendly, 0, true, 1500),
		runnerEntity("H-1", tactical.SideHostile, 900, true, 1500),
	}

	runner := newTestRunner()
	report, err := runner.Run(context.Background(), []dis.Batch{frame, repeat})
	require.NoError(t, err)

	require.Equal(t, 2, report.Decisions)
	require.Equal(t, 1, report.CacheHits)
	require.Equal(t, 50.0, report.CacheHitRate)
}

func TestRunnerRejectsEmptyReplay(t *testing.T) {
	runner := newTestRunner()
	_, err := runner.Run(context.Background(), nil)
	require.Error(t, err)
}
