package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvonguyen/casescreen/internal/analyzer"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5001, cfg.Server.Port)
	assert.Equal(t, 100, cfg.Analysis.ContextChars)
	assert.Equal(t, 3, cfg.Analysis.MaxEvidence)
	assert.Equal(t, "pairwise", cfg.Analysis.MergeStrategy)
	assert.Equal(t, ":5001", cfg.Addr())
}

func TestLoad_ValidFile(t *testing.T) {
	t.Setenv("CASESCREEN_PORT", "")
	t.Setenv("PORT", "")

	path := writeConfig(t, `
server:
  port: 9090
  request_timeout: 5s
analysis:
  merge_strategy: mean
  document_concurrency: 4
logging:
  level: debug
  format: console
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "mean", cfg.Analysis.MergeStrategy)
	assert.Equal(t, 4, cfg.Analysis.DocumentConcurrency)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched sections keep defaults
	assert.Equal(t, 100, cfg.Analysis.ContextChars)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoad_Tracing(t *testing.T) {
	t.Setenv("CASESCREEN_PORT", "")
	t.Setenv("PORT", "")

	cfg, err := Load(writeConfig(t, `
telemetry:
  tracing_enabled: true
  otlp_endpoint: collector:4317
  sampling_rate: 0.25
`))
	require.NoError(t, err)
	assert.True(t, cfg.Telemetry.TracingEnabled)
	assert.Equal(t, "collector:4317", cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, 0.25, cfg.Telemetry.SamplingRate)
	// metrics defaults survive a partial telemetry section
	assert.True(t, cfg.Telemetry.MetricsEnabled)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("CASESCREEN_PORT", "")
	t.Setenv("PORT", "")

	tests := []struct {
		name    string
		content string
	}{
		{"bad merge strategy", "analysis:\n  merge_strategy: median\n"},
		{"too much evidence", "analysis:\n  max_evidence: 5\n"},
		{"port out of range", "server:\n  port: 70000\n"},
		{"zero concurrency", "analysis:\n  document_concurrency: 0\n"},
		{"rate limit without redis", "rate_limit:\n  enabled: true\n  redis_addr: \"\"\n"},
		{"sampling rate above one", "telemetry:\n  sampling_rate: 1.5\n"},
		{"tracing without endpoint", "telemetry:\n  tracing_enabled: true\n  otlp_endpoint: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadOrDefault_NoFile(t *testing.T) {
	t.Setenv("CASESCREEN_PORT", "")
	t.Setenv("PORT", "")

	cfg, err := LoadOrDefault("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 5001, cfg.Server.Port)
}

func TestEnvPortOverride(t *testing.T) {
	t.Setenv("CASESCREEN_PORT", "")
	t.Setenv("PORT", "6001")

	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, 6001, cfg.Server.Port)

	t.Setenv("CASESCREEN_PORT", "7001")
	cfg, err = LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Server.Port)

	t.Setenv("CASESCREEN_PORT", "not-a-port")
	_, err = LoadOrDefault("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRedisPassword(t *testing.T) {
	t.Setenv("TEST_REDIS_PASSWORD", "s3cret")

	cfg := DefaultConfig()
	cfg.RateLimit.RedisPasswordEnv = "TEST_REDIS_PASSWORD"
	assert.Equal(t, "s3cret", cfg.RedisPassword())

	cfg.RateLimit.RedisPasswordEnv = ""
	assert.Empty(t, cfg.RedisPassword())
}

func TestAnalyzerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Analysis.MergeStrategy = "mean"
	cfg.Analysis.ContextChars = 40
	cfg.Analysis.DocumentConcurrency = 3

	ac, err := cfg.AnalyzerConfig()
	require.NoError(t, err)
	assert.Equal(t, analyzer.MergeMean, ac.MergeStrategy)
	assert.Equal(t, 40, ac.Evidence.ContextChars)
	assert.Equal(t, 3, ac.Evidence.MaxSnippets)
	assert.Equal(t, 3, ac.DocumentConcurrency)

	cfg.Analysis.MergeStrategy = "median"
	_, err = cfg.AnalyzerConfig()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestGatewayConfig(t *testing.T) {
	path := writeConfig(t, `
rate_limit:
  enabled: true
  requests_per_minute: 60
  tiers:
    free:
      requests_per_minute: 10
`)
	t.Setenv("CASESCREEN_PORT", "")
	t.Setenv("PORT", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	gc := cfg.GatewayConfig()
	assert.Equal(t, 60, gc.DefaultRequestsPerMinute)
	assert.Equal(t, 10, gc.Tiers["free"].RequestsPerMinute)
	assert.True(t, gc.IncludeHeaders)
}
