package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads and validates a configuration file.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadConfigOrDefault loads config from the given path when set, then
// falls back to conventional locations, then to the defaults. The
// environment overrides are always applied last.
func LoadConfigOrDefault(path string) (*Config, error) {
	var cfg *Config

	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cfg == nil {
		for _, candidate := range []string{"tacsim.yaml", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				loaded, err := LoadConfig(candidate)
				if err == nil {
					cfg = loaded
					break
				}
			}
		}
	}

	if cfg == nil {
		cfg = Default()
	}

	MergeWithEnvironment(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed after overrides: %w", err)
	}
	return cfg, nil
}

// MergeWithEnvironment applies environment variable overrides.
func MergeWithEnvironment(cfg *Config) {
	if backend := os.Getenv("TACSIM_MODEL_BACKEND"); backend != "" {
		switch backend {
		case "mock", "openai":
			cfg.Model.Backend = backend
		}
	}

	if endpoint := os.Getenv("TACSIM_MODEL_ENDPOINT"); endpoint != "" {
		cfg.Model.Endpoint = endpoint
	}

	if model := os.Getenv("TACSIM_MODEL_NAME"); model != "" {
		cfg.Model.ModelName = model
	}

	if timeout := os.Getenv("TACSIM_MODEL_TIMEOUT_MS"); timeout != "" {
		if v, err := strconv.Atoi(timeout); err == nil && v > 0 {
			cfg.Model.TimeoutMs = v
		}
	}

	if ttl := os.Getenv("TACSIM_CACHE_TTL_MS"); ttl != "" {
		if v, err := strconv.ParseInt(ttl, 10, 64); err == nil && v > 0 {
			cfg.Pipeline.CacheTTLMs = v
		}
	}

	if window := os.Getenv("TACSIM_MEMORY_WINDOW_MS"); window != "" {
		if v, err := strconv.ParseInt(window, 10, 64); err == nil && v > 0 {
			cfg.Pipeline.MemoryWindowMs = v
		}
	}

	if level := os.Getenv("TACSIM_LOG_LEVEL"); level != "" {
		for _, valid := range []string{"debug", "info", "warn", "error"} {
			if level == valid {
				cfg.Logging.ConsoleLevel = valid
				break
			}
		}
	}

	if verbose := os.Getenv("TACSIM_VERBOSE"); verbose != "" {
		if v, err := strconv.ParseBool(verbose); err == nil {
			cfg.Logging.Verbose = v
		}
	}
}
