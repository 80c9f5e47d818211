package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/windbluesea/tacsim-agent/pkg/config"
	"github.com/windbluesea/tacsim-agent/pkg/decision"
	"github.com/windbluesea/tacsim-agent/pkg/dis"
	"github.com/windbluesea/tacsim-agent/pkg/inference"
	"github.com/windbluesea/tacsim-agent/pkg/logger"
	"github.com/windbluesea/tacsim-agent/pkg/pipeline"
	"github.com/windbluesea/tacsim-agent/pkg/replay"
	"github.com/windbluesea/tacsim-agent/pkg/tactical"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a recorded scenario through the decision pipeline",
	Long: `Run replays a recorded scenario (text records or a DIS binary
capture) through the tactical decision pipeline and reports latency,
cache behavior, and engagement metrics.`,
	RunE: runReplay,
}

func init() {
	runCmd.Flags().StringP("scenario", "s", "", "scenario file to replay")
	runCmd.Flags().Bool("demo", false, "run a single tick over a built-in mock frame")
	runCmd.Flags().BoolP("verbose", "v", false, "narrate every decision event")
}

func runReplay(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfigOrDefault(cfgFile)
	if err != nil {
		return err
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.ConsoleLevel))

	verbose, _ := cmd.Flags().GetBool("verbose")
	verbose = verbose || cfg.Logging.Verbose

	ranker, backendLabel, err := buildRanker(cfg)
	if err != nil {
		return err
	}

	agent := pipeline.New(
		cfg.PipelineSettings(),
		decision.NewFireControlEngine(cfg.FireSettings()),
		decision.NewManeuverEngine(cfg.ManeuverSettings()),
		ranker,
	)

	if demo, _ := cmd.Flags().GetBool("demo"); demo {
		return runDemoTick(agent)
	}

	scenarioPath, err := selectScenario(cmd)
	if err != nil {
		return err
	}

	batches, err := replay.LoadAny(scenarioPath)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		return fmt.Errorf("no usable frames in %s", scenarioPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Warn("\n收到中断信号，停止回放")
		cancel()
	}()

	logger.LogSection(fmt.Sprintf("回放 %s", scenarioPath))

	runner := replay.NewRunner(agent, replay.NewMissionLog(verbose))
	report, err := runner.Run(ctx, batches)
	if err != nil {
		return err
	}
	report.ReplayFile = scenarioPath
	report.Backend = backendLabel

	printReport(report)
	return nil
}

// buildRanker resolves the model backend from config, prompting for an
// API key only when the HTTP backend is selected and none is set.
func buildRanker(cfg *config.Config) (inference.Ranker, string, error) {
	modelCfg := cfg.ModelSettings(apiKeyFromEnv())

	if modelCfg.Backend == inference.BackendOpenAICompatible {
		if modelCfg.APIKey == "" && os.Getenv("TACSIM_SKIP_PROMPTS") != "true" {
			var key string
			prompt := &survey.Password{Message: "Enter model API key (optional):"}
			if err := survey.AskOne(prompt, &key); err != nil {
				return nil, "", err
			}
			modelCfg.APIKey = key
		}
		return inference.New(modelCfg), "OpenAI兼容接口", nil
	}
	return inference.New(modelCfg), "模拟后端", nil
}

func apiKeyFromEnv() string {
	if key := os.Getenv("TACSIM_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("OPENAI_API_KEY")
}

// selectScenario takes the flag value or falls back to an interactive
// selection over discovered scenario files.
func selectScenario(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("scenario"); path != "" {
		return path, nil
	}

	candidates, err := discoverScenarios()
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no scenario files found; pass one with --scenario")
	}

	if os.Getenv("TACSIM_SKIP_PROMPTS") == "true" {
		return candidates[0], nil
	}

	var selected string
	prompt := &survey.Select{
		Message: "Select scenario:",
		Options: candidates,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}
	return selected, nil
}

// discoverScenarios lists replayable files in ./ and ./scenarios.
func discoverScenarios() ([]string, error) {
	var out []string
	for _, dir := range []string{".", "scenarios"} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if replay.IsBinaryCapture(name) || strings.HasSuffix(name, ".scn") || strings.HasSuffix(name, ".replay") {
				if dir == "." {
					out = append(out, name)
				} else {
					out = append(out, dir+"/"+name)
				}
			}
		}
	}
	return out, nil
}

// runDemoTick replays the built-in two-on-two mock frame once and
// prints the resulting decision package.
func runDemoTick(agent *pipeline.AgentPipeline) error {
	adapter := disAdapterWithMockFrame()
	snapshot, ok := adapter.Poll()
	if !ok {
		return fmt.Errorf("no snapshot available")
	}

	pkg := agent.Tick(context.Background(), snapshot, adapter.DrainEvents())

	logger.LogSection("单帧演示")
	logger.LogKeyValue("Fire", pkg.Fire.Summary)
	logger.LogKeyValue("Maneuver", pkg.Maneuver.Summary)
	logger.LogKeyValue("Explain", pkg.Explanation)
	for _, a := range pkg.Fire.Assignments {
		fmt.Printf("  shooter=%s target=%s weapon=%s score=%.2f tactic=%s\n",
			a.ShooterID, a.TargetID, a.WeaponName, a.Score, a.Tactic)
	}
	for _, m := range pkg.Maneuver.Actions {
		fmt.Printf("  unit=%s action=%s next=(%.1f,%.1f)\n",
			m.UnitID, m.ActionName, m.NextPose.X, m.NextPose.Y)
	}
	return nil
}

func printReport(report replay.Report) {
	logger.LogSection("回放结果")
	logger.LogKeyValue("运行ID", report.RunID)
	logger.LogKeyValue("回放文件", report.ReplayFile)
	logger.LogKeyValue("模型后端", report.Backend)
	logger.LogKeyValue("帧数", report.Frames)
	logger.LogKeyValue("决策循环次数", report.Ticks)
	logger.LogKeyValue("决策总数", report.Decisions)
	logger.LogKeyValue("缓存命中率", fmt.Sprintf("%.1f%%", report.CacheHitRate))
	logger.LogKeyValue("平均时延(毫秒)", fmt.Sprintf("%.3f", report.AvgLatencyMs))
	logger.LogKeyValue("95分位时延(毫秒)", fmt.Sprintf("%.3f", report.P95LatencyMs))
	logger.LogKeyValue("初始我方兵力", report.Metrics.InitialFriendlyCount)
	logger.LogKeyValue("最终存活我方兵力", report.Metrics.FinalFriendlyAlive)
	logger.LogKeyValue("生存率", fmt.Sprintf("%.1f%%", report.Metrics.SurvivalRate))
	logger.LogKeyValue("敌方损失数", report.Metrics.TotalHostileLosses)
	logger.LogKeyValue("命中贡献率", fmt.Sprintf("%.1f%%", report.Metrics.HitContributionRate))
	for shooter, credit := range report.Metrics.ShooterKillContribution {
		logger.LogKeyValue("射手毁伤贡献 "+shooter, fmt.Sprintf("%.2f", credit))
	}
}

// disAdapterWithMockFrame builds the demo battlefield: two friendlies
// facing hostile armor and artillery at visibility 900 m. The friendly
// mock units carry the same default loadouts wire entities would get;
// the hostile units carry no weapons.
func disAdapterWithMockFrame() *dis.Adapter {
	snap := tactical.BattlefieldSnapshot{
		TimestampMs: 1000,
		FriendlyUnits: []tactical.EntityState{
			{ID: "F-1", Side: tactical.SideFriendly, Type: tactical.UnitArmor, Pose: tactical.Pose{X: 0, Y: 0}, SpeedMps: 6, ThreatLevel: 0.4, Alive: true, Weapons: dis.DefaultWeapons(tactical.UnitArmor)},
			{ID: "F-2", Side: tactical.SideFriendly, Type: tactical.UnitInfantry, Pose: tactical.Pose{X: -20, Y: -15}, SpeedMps: 2, ThreatLevel: 0.3, Alive: true, Weapons: dis.DefaultWeapons(tactical.UnitInfantry)},
		},
		HostileUnits: []tactical.EntityState{
			{ID: "H-1", Side: tactical.SideHostile, Type: tactical.UnitArmor, Pose: tactical.Pose{X: 450, Y: 200}, SpeedMps: 8.5, ThreatLevel: 0.9, Alive: true},
			{ID: "H-2", Side: tactical.SideHostile, Type: tactical.UnitArtillery, Pose: tactical.Pose{X: -180, Y: 130}, SpeedMps: 3, ThreatLevel: 0.8, Alive: true},
		},
		Env: tactical.EnvironmentState{VisibilityM: 900, WeatherRisk: 0.2},
	}

	adapter := dis.NewAdapter()
	adapter.FeedMockFrame(snap)
	return adapter
}
