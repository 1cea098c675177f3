// Package config provides unified configuration loading for the
// coordination engine: defaults, YAML file, then environment variable
// overrides, in that precedence order.
//
// Usage:
//
//	cfg, err := config.Load("agentnet.yaml")
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/agentnet/coordinator"
	"github.com/BaSui01/agentnet/registry"
	"github.com/BaSui01/agentnet/router"
)

// envPrefix namespaces all environment overrides.
const envPrefix = "AGENTNET_"

// Config is the complete engine configuration.
type Config struct {
	// Registry configures the capability registry.
	Registry registry.Config `yaml:"registry"`

	// Router configures the message router.
	Router router.Config `yaml:"router"`

	// Coordinator configures the workflow coordinator.
	Coordinator coordinator.Config `yaml:"coordinator"`

	// Redis configures the optional registry snapshot store. An empty
	// Addr disables persistence.
	Redis registry.StoreConfig `yaml:"redis"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Development switches to the human-friendly console encoder.
	Development bool `yaml:"development"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled toggles the /metrics HTTP listener.
	Enabled bool `yaml:"enabled"`

	// Addr is the listen address for /metrics.
	Addr string `yaml:"addr"`

	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace"`
}

// Default returns the full default configuration.
func Default() *Config {
	return &Config{
		Registry:    registry.DefaultConfig(),
		Router:      router.DefaultConfig(),
		Coordinator: coordinator.DefaultConfig(),
		Redis:       registry.StoreConfig{TTL: 24 * time.Hour},
		Log:         LogConfig{Level: "info"},
		Metrics:     MetricsConfig{Enabled: true, Addr: ":9464", Namespace: "agentnet"},
	}
}

// Load builds the configuration: defaults, then the YAML file when the path
// is non-empty and exists, then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides the settings most commonly tuned per deployment.
func applyEnv(cfg *Config) {
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(envPrefix + "REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv(envPrefix + "REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv(envPrefix + "METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv(envPrefix + "ROUTER_ALGORITHM"); v != "" {
		cfg.Router.Algorithm = router.Algorithm(v)
	}
	if v := os.Getenv(envPrefix + "MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Coordinator.MaxIterations = n
		}
	}
	if v := os.Getenv(envPrefix + "WORKFLOW_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Coordinator.Timeout = d
		}
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Log.Level)
	}
	switch c.Router.Algorithm {
	case router.AlgorithmRoundRobin, router.AlgorithmLeastLoaded, router.AlgorithmBestMatch:
	default:
		return fmt.Errorf("invalid router algorithm: %q", c.Router.Algorithm)
	}
	if c.Router.MaxRetries < 0 {
		return fmt.Errorf("router max_retries must not be negative")
	}
	if c.Coordinator.MaxIterations <= 0 {
		return fmt.Errorf("coordinator max_iterations must be positive")
	}
	if c.Coordinator.Timeout <= 0 {
		return fmt.Errorf("coordinator timeout must be positive")
	}
	if c.Registry.CleanupInterval <= 0 || c.Registry.InactivityThreshold <= 0 {
		return fmt.Errorf("registry cleanup_interval and inactivity_threshold must be positive")
	}
	return nil
}
