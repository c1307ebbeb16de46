package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chtmp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	chtmp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.tavily.com", cfg.Tavily.BaseURL)
	assert.Equal(t, "https://api.perplexity.ai", cfg.Perplexity.BaseURL)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.Groq.Model)
	assert.Equal(t, 2, cfg.Discovery.Overfetch)
	assert.Equal(t, 1, cfg.Discovery.DomainCap)
	assert.InDelta(t, 0.5, cfg.Discovery.SuccessFraction, 0.001)
	assert.Equal(t, 2, cfg.Discovery.MaxRetries)
	assert.InDelta(t, 0.3, cfg.Discovery.SampleFraction, 0.001)
	assert.Equal(t, 20, cfg.Extract.TimeoutSecs)
	assert.Equal(t, 3, cfg.Pipeline.BatchSize)
	assert.Equal(t, 2, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, "default", cfg.Pipeline.Profile)
	assert.Equal(t, 3, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 30, cfg.Breaker.CooldownSecs)
}

func TestLoadFromYAML(t *testing.T) {
	chtmp(t)

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
pipeline:
  batch_size: 5
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Pipeline.BatchSize)
	// Defaults still apply for unset values
	assert.Equal(t, 2, cfg.Discovery.Overfetch)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chtmp(t)

	yaml := `
log:
  level: debug
groq:
  model: from-file
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("PLATEFUL_LOG_LEVEL", "warn")
	t.Setenv("PLATEFUL_GROQ_MODEL", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "from-env", cfg.Groq.Model)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chtmp(t)

	t.Setenv("PLATEFUL_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
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
	cfg.Server.Port = 8080
	cfg.Pipeline.BatchSize = 3
	cfg.Pipeline.MinYieldFraction = 0.5
	cfg.Discovery.SampleFraction = 0.3
	return cfg
}

func TestValidateSearch_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Tavily.Key = "tvly-key"
	cfg.Groq.Key = "gsk-key"

	assert.NoError(t, cfg.Validate("search"))
}

func TestValidateSearch_MissingKeys(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("search")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "tavily.key is required")
	assert.Contains(t, err.Error(), "extraction key")
}

func TestValidateSearch_OneExtractorSuffices(t *testing.T) {
	cfg := validDefaults()
	cfg.Tavily.Key = "tvly-key"
	cfg.Perplexity.Key = "pplx-key"

	assert.NoError(t, cfg.Validate("search"))
}

func TestValidateCheck_NeedsNoKeys(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("check"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Tavily.Key = "tvly-key"
	cfg.Groq.Key = "gsk-key"
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Tavily.Key = "tvly-key"
	cfg.Groq.Key = "gsk-key"

	cfg.Pipeline.BatchSize = 0
	err := cfg.Validate("search")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "batch_size must be between 1 and 20")

	cfg.Pipeline.BatchSize = 21
	err = cfg.Validate("search")
	assert.Error(t, err)

	cfg.Pipeline.BatchSize = 3
	cfg.Pipeline.MinYieldFraction = 1.5
	err = cfg.Validate("search")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "min_yield_fraction")

	cfg.Pipeline.MinYieldFraction = 0.5
	cfg.Discovery.SampleFraction = -0.1
	err = cfg.Validate("search")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sample_fraction")

	cfg.Discovery.SampleFraction = 0.3
	assert.NoError(t, cfg.Validate("search"))
}
