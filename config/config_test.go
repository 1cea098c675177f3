package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentnet/router"
)

func TestDefault(t *testing.T) {
	t.Parallel()
	cfg := Default()

	assert.Equal(t, router.AlgorithmBestMatch, cfg.Router.Algorithm)
	assert.Equal(t, 3, cfg.Router.MaxRetries)
	assert.Equal(t, 10, cfg.Coordinator.MaxIterations)
	assert.Equal(t, 60*time.Second, cfg.Coordinator.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Registry.CleanupInterval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":9464", cfg.Metrics.Addr)
	assert.Empty(t, cfg.Redis.Addr, "persistence is opt-in")
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Router.Algorithm, cfg.Router.Algorithm)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentnet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
router:
  algorithm: least_loaded
  max_retries: 7
coordinator:
  max_iterations: 20
redis:
  addr: localhost:6379
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, router.AlgorithmLeastLoaded, cfg.Router.Algorithm)
	assert.Equal(t, 7, cfg.Router.MaxRetries)
	assert.Equal(t, 20, cfg.Coordinator.MaxIterations)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	// Settings the file does not mention keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Registry.CleanupInterval)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentnet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	t.Setenv("AGENTNET_LOG_LEVEL", "warn")
	t.Setenv("AGENTNET_ROUTER_ALGORITHM", "round_robin")
	t.Setenv("AGENTNET_MAX_ITERATIONS", "15")
	t.Setenv("AGENTNET_WORKFLOW_TIMEOUT", "90s")
	t.Setenv("AGENTNET_REDIS_ADDR", "redis:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, router.AlgorithmRoundRobin, cfg.Router.Algorithm)
	assert.Equal(t, 15, cfg.Coordinator.MaxIterations)
	assert.Equal(t, 90*time.Second, cfg.Coordinator.Timeout)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentnet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [broken"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad algorithm", func(c *Config) { c.Router.Algorithm = "random" }},
		{"negative retries", func(c *Config) { c.Router.MaxRetries = -1 }},
		{"zero iterations", func(c *Config) { c.Coordinator.MaxIterations = 0 }},
		{"zero timeout", func(c *Config) { c.Coordinator.Timeout = 0 }},
		{"zero cleanup interval", func(c *Config) { c.Registry.CleanupInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
