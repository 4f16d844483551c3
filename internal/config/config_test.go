package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "radreport.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrentCases)
	assert.Equal(t, "http://localhost:8081", cfg.Calculator.BaseURL)
	assert.Equal(t, 30, cfg.Calculator.TimeoutSecs)
	assert.Equal(t, 3, cfg.Calculator.MaxRetries)
	assert.Equal(t, 2, cfg.Pipeline.MaxHealAttempts)
	assert.Equal(t, int64(10000), cfg.Pipeline.LatencyThresholdMs)
	assert.Equal(t, 2, cfg.Pipeline.MissingMarkerThreshold)
	assert.Equal(t, "v8.7.9", cfg.Pipeline.PromptVersion)
	assert.Equal(t, "llm", cfg.Pipeline.Renderer)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Models.Findings)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Models.Renderer)
	assert.Equal(t, int64(4096), cfg.Anthropic.MaxTokens)
	assert.False(t, cfg.Monitoring.Enabled)
	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
	assert.Equal(t, 24, cfg.Monitoring.LookbackWindowHours)
	assert.InDelta(t, 0.30, cfg.Monitoring.S1RateThreshold, 0.0001)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/radreport
log:
  level: debug
  format: console
pipeline:
  max_heal_attempts: 1
  renderer: template
calculator:
  base_url: http://calc:9000
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 1, cfg.Pipeline.MaxHealAttempts)
	assert.Equal(t, "template", cfg.Pipeline.Renderer)
	assert.Equal(t, "http://calc:9000", cfg.Calculator.BaseURL)
	// Defaults still apply for unset values
	assert.Equal(t, int64(10000), cfg.Pipeline.LatencyThresholdMs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("RADREPORT_STORE_DRIVER", "none")
	t.Setenv("RADREPORT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("RADREPORT_PIPELINE_LATENCY_THRESHOLD_MS", "2500")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(2500), cfg.Pipeline.LatencyThresholdMs)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Calculator.BaseURL = "http://localhost:8081"
	cfg.Pipeline.MaxHealAttempts = 2
	cfg.Pipeline.Renderer = "llm"
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "radreport.db"
	cfg.Batch.MaxConcurrentCases = 4
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_AllModesPass(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{"run", "batch", "serve"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidate_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = ""
	cfg.Calculator.BaseURL = ""

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
	assert.Contains(t, err.Error(), "calculator.base_url is required")
}

func TestValidate_Store(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""
	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.Driver = "none"
	assert.NoError(t, cfg.Validate("run"))

	cfg.Store.Driver = "mysql"
	err = cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestValidate_HealAttemptsBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Pipeline.MaxHealAttempts = -1
	assert.Error(t, cfg.Validate("run"))

	cfg.Pipeline.MaxHealAttempts = 6
	assert.Error(t, cfg.Validate("run"))

	cfg.Pipeline.MaxHealAttempts = 0
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidate_Renderer(t *testing.T) {
	cfg := validDefaults()
	cfg.Pipeline.Renderer = "pdf"
	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.renderer")
}

func TestValidate_BatchConcurrency(t *testing.T) {
	cfg := validDefaults()

	cfg.Batch.MaxConcurrentCases = 0
	err := cfg.Validate("batch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent_cases must be between 1 and 32")

	// Only enforced for batch mode.
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidate_ServePort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidate_UnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
