// Package pipeline orchestrates the per-tick decision flow: cache probe,
// memory update, situation fusion, the tactical engines, and the ranker.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/windbluesea/tacsim-agent/pkg/cache"
	"github.com/windbluesea/tacsim-agent/pkg/decision"
	"github.com/windbluesea/tacsim-agent/pkg/fusion"
	"github.com/windbluesea/tacsim-agent/pkg/inference"
	"github.com/windbluesea/tacsim-agent/pkg/memory"
	"github.com/windbluesea/tacsim-agent/pkg/tactical"
)

// Config bounds the decision cache and the memory window consulted on
// each tick.
type Config struct {
	CacheTTLMs     int64
	MemoryWindowMs int64
}

// DefaultConfig returns the stock pipeline bounds.
func DefaultConfig() Config {
	return Config{
		CacheTTLMs:     3000,
		MemoryWindowMs: 5 * 60 * 1000,
	}
}

// AgentPipeline owns the memory, engines, and cache for one decision
// stream. It is single-threaded: concurrent ticks are undefined.
type AgentPipeline struct {
	cfg      Config
	memory   *memory.EventMemory
	fusion   fusion.SituationFusion
	fire     *decision.FireControlEngine
	maneuver *decision.ManeuverEngine
	ranker   inference.Ranker
	cache    *cache.DecisionCache
}

// New wires a pipeline from its engines and ranker. Event retention is
// double the query window so context survives sparse ticks.
func New(cfg Config, fire *decision.FireControlEngine, maneuver *decision.ManeuverEngine, ranker inference.Ranker) *AgentPipeline {
	if cfg.CacheTTLMs <= 0 {
		cfg.CacheTTLMs = DefaultConfig().CacheTTLMs
	}
	if cfg.MemoryWindowMs <= 0 {
		cfg.MemoryWindowMs = DefaultConfig().MemoryWindowMs
	}
	return &AgentPipeline{
		cfg:      cfg,
		memory:   memory.New(cfg.MemoryWindowMs * 2),
		fire:     fire,
		maneuver: maneuver,
		ranker:   ranker,
		cache:    cache.New(cfg.CacheTTLMs),
	}
}

// Tick runs one decision cycle. A cache hit short-circuits everything,
// including the memory append and fusion.
func (p *AgentPipeline) Tick(ctx context.Context, snapshot tactical.BattlefieldSnapshot, disEvents []tactical.EventRecord) tactical.DecisionPackage {
	p.cache.Prune(snapshot.TimestampMs)
	key := BuildCacheKey(snapshot)

	if cached, ok := p.cache.Get(key, snapshot.TimestampMs); ok {
		cached.FromCache = true
		return cached
	}

	p.memory.AddEvents(disEvents)
	recent := p.memory.QueryRecent(snapshot.TimestampMs, p.cfg.MemoryWindowMs)

	semantics := p.fusion.Infer(snapshot, recent)
	for _, tag := range semantics.Tags {
		p.memory.AddEvent(tactical.EventRecord{
			TimestampMs: snapshot.TimestampMs,
			Type:        tactical.EventTacticalTag,
			ActorID:     "fusion",
			Message:     fmt.Sprintf("%s:%s", tag.Name, tag.Reason),
		})
	}

	var pkg tactical.DecisionPackage
	pkg.Fire = p.fire.Decide(snapshot, semantics, p.memory)
	pkg.Maneuver = p.maneuver.Decide(snapshot, semantics)

	memoryContext := p.memory.BuildContext(snapshot.TimestampMs, p.cfg.MemoryWindowMs)
	candidates := []string{
		"Candidate-A aggressive: " + pkg.Fire.Summary + ";" + pkg.Maneuver.Summary,
		"Candidate-B conservative: prioritize cover and defer long-range fire when confidence is low",
	}

	response := p.ranker.RankAndExplain(ctx, inference.Request{Context: memoryContext, Candidates: candidates})
	pkg.Explanation = fmt.Sprintf("selected_index=%d; %s", response.SelectedIndex, response.Explanation)
	pkg.FromCache = false

	p.cache.Put(key, pkg, snapshot.TimestampMs)
	return pkg
}

// BuildCacheKey fingerprints a snapshot: force sizes, visibility in
// 100 m bins, then each unit's position quantized to 100 m bins with
// floor toward negative infinity. Order follows the snapshot order.
func BuildCacheKey(snapshot tactical.BattlefieldSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "f=%d|h=%d|v=%d",
		len(snapshot.FriendlyUnits),
		len(snapshot.HostileUnits),
		int(math.Floor(snapshot.Env.VisibilityM/100)))

	for _, unit := range snapshot.FriendlyUnits {
		fmt.Fprintf(&b, "|%s@%d,%d", unit.ID, int(math.Floor(unit.Pose.X/100)), int(math.Floor(unit.Pose.Y/100)))
	}
	for _, unit := range snapshot.HostileUnits {
		fmt.Fprintf(&b, "|%s@%d,%d", unit.ID, int(math.Floor(unit.Pose.X/100)), int(math.Floor(unit.Pose.Y/100)))
	}
	return b.String()
}
