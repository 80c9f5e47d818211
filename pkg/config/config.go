// Package config holds the YAML-backed configuration of the decision
// agent: pipeline bounds, engine tuning, and the model backend.
package config

import (
	"fmt"

	"github.com/windbluesea/tacsim-agent/pkg/decision"
	"github.com/windbluesea/tacsim-agent/pkg/inference"
	"github.com/windbluesea/tacsim-agent/pkg/pipeline"
)

// Config is the complete agent configuration.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Fire     FireConfig     `yaml:"fire"`
	Maneuver ManeuverConfig `yaml:"maneuver"`
	Model    ModelConfig    `yaml:"model"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PipelineConfig bounds the cache and the memory window.
type PipelineConfig struct {
	CacheTTLMs     int64 `yaml:"cache_ttl_ms"`
	MemoryWindowMs int64 `yaml:"memory_window_ms"`
}

// FireConfig tunes the fire-control engine.
type FireConfig struct {
	EnableFocusFire          bool    `yaml:"enable_focus_fire"`
	EnableStaggerFire        bool    `yaml:"enable_stagger_fire"`
	MaxShootersPerTarget     int     `yaml:"max_shooters_per_target"`
	FocusFireThreatThreshold float64 `yaml:"focus_fire_threat_threshold"`
}

// ManeuverConfig tunes the maneuver engine.
type ManeuverConfig struct {
	EmergencyDistanceM float64 `yaml:"emergency_distance_m"`
	PathStepM          float64 `yaml:"path_step_m"`
	PathHorizonSteps   int     `yaml:"path_horizon_steps"`
}

// ModelConfig selects and parameterizes the ranker backend.
type ModelConfig struct {
	Backend   string `yaml:"backend"` // "mock" or "openai"
	ModelName string `yaml:"model_name"`
	MaxTokens int    `yaml:"max_tokens"`
	Endpoint  string `yaml:"endpoint"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// LoggingConfig controls console output.
type LoggingConfig struct {
	ConsoleLevel string `yaml:"console_level"` // "debug", "info", "warn", "error"
	Verbose      bool   `yaml:"verbose"`
}

// Default returns the stock configuration: mock backend, default engine
// tuning, 3 s cache TTL, 5 min memory window.
func Default() *Config {
	fire := decision.DefaultFireConfig()
	maneuver := decision.DefaultManeuverConfig()
	model := inference.DefaultConfig()
	pipe := pipeline.DefaultConfig()

	return &Config{
		Pipeline: PipelineConfig{
			CacheTTLMs:     pipe.CacheTTLMs,
			MemoryWindowMs: pipe.MemoryWindowMs,
		},
		Fire: FireConfig{
			EnableFocusFire:          fire.EnableFocusFire,
			EnableStaggerFire:        fire.EnableStaggerFire,
			MaxShootersPerTarget:     fire.MaxShootersPerTarget,
			FocusFireThreatThreshold: fire.FocusFireThreatThreshold,
		},
		Maneuver: ManeuverConfig{
			EmergencyDistanceM: maneuver.EmergencyDistanceM,
			PathStepM:          maneuver.PathStepM,
			PathHorizonSteps:   maneuver.PathHorizonSteps,
		},
		Model: ModelConfig{
			Backend:   string(model.Backend),
			ModelName: model.ModelName,
			MaxTokens: model.MaxTokens,
			Endpoint:  model.Endpoint,
			TimeoutMs: model.TimeoutMs,
		},
		Logging: LoggingConfig{ConsoleLevel: "info"},
	}
}

// Validate checks value ranges after load and overrides.
func (c *Config) Validate() error {
	if c.Pipeline.CacheTTLMs <= 0 {
		return fmt.Errorf("pipeline.cache_ttl_ms must be positive, got %d", c.Pipeline.CacheTTLMs)
	}
	if c.Pipeline.MemoryWindowMs <= 0 {
		return fmt.Errorf("pipeline.memory_window_ms must be positive, got %d", c.Pipeline.MemoryWindowMs)
	}
	if c.Fire.MaxShootersPerTarget <= 0 {
		return fmt.Errorf("fire.max_shooters_per_target must be positive, got %d", c.Fire.MaxShootersPerTarget)
	}
	if c.Maneuver.EmergencyDistanceM < 0 {
		return fmt.Errorf("maneuver.emergency_distance_m must be non-negative, got %f", c.Maneuver.EmergencyDistanceM)
	}
	if c.Maneuver.PathStepM <= 0 {
		return fmt.Errorf("maneuver.path_step_m must be positive, got %f", c.Maneuver.PathStepM)
	}
	if c.Maneuver.PathHorizonSteps <= 0 {
		return fmt.Errorf("maneuver.path_horizon_steps must be positive, got %d", c.Maneuver.PathHorizonSteps)
	}
	switch c.Model.Backend {
	case "mock", "openai":
	default:
		return fmt.Errorf("model.backend must be \"mock\" or \"openai\", got %q", c.Model.Backend)
	}
	if c.Model.TimeoutMs <= 0 {
		return fmt.Errorf("model.timeout_ms must be positive, got %d", c.Model.TimeoutMs)
	}
	return nil
}

// PipelineSettings converts to the pipeline package config.
func (c *Config) PipelineSettings() pipeline.Config {
	return pipeline.Config{
		CacheTTLMs:     c.Pipeline.CacheTTLMs,
		MemoryWindowMs: c.Pipeline.MemoryWindowMs,
	}
}

// FireSettings converts to the decision package fire config.
func (c *Config) FireSettings() decision.FireConfig {
	return decision.FireConfig{
		EnableFocusFire:          c.Fire.EnableFocusFire,
		EnableStaggerFire:        c.Fire.EnableStaggerFire,
		MaxShootersPerTarget:     c.Fire.MaxShootersPerTarget,
		FocusFireThreatThreshold: c.Fire.FocusFireThreatThreshold,
	}
}

// ManeuverSettings converts to the decision package maneuver config.
func (c *Config) ManeuverSettings() decision.ManeuverConfig {
	return decision.ManeuverConfig{
		EmergencyDistanceM: c.Maneuver.EmergencyDistanceM,
		PathStepM:          c.Maneuver.PathStepM,
		PathHorizonSteps:   c.Maneuver.PathHorizonSteps,
	}
}

// ModelSettings converts to the inference package config. The API key
// comes from the environment, never from the file.
func (c *Config) ModelSettings(apiKey string) inference.Config {
	return inference.Config{
		Backend:   inference.Backend(c.Model.Backend),
		ModelName: c.Model.ModelName,
		MaxTokens: c.Model.MaxTokens,
		Endpoint:  c.Model.Endpoint,
		APIKey:    apiKey,
		TimeoutMs: c.Model.TimeoutMs,
	}
}
