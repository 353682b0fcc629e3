// Package config provides configuration management for casescreen.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lvonguyen/casescreen/internal/analyzer"
	"github.com/lvonguyen/casescreen/internal/api/gateway"
	"github.com/lvonguyen/casescreen/internal/indicator"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all casescreen configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// AnalysisConfig holds detector and aggregation settings.
type AnalysisConfig struct {
	ContextChars        int    `yaml:"context_chars"`
	MaxEvidence         int    `yaml:"max_evidence"`
	MergeStrategy       string `yaml:"merge_strategy"` // pairwise, mean
	ParallelDetectors   bool   `yaml:"parallel_detectors"`
	DocumentConcurrency int    `yaml:"document_concurrency"`
}

// RateLimitConfig holds Redis-backed rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool   `yaml:"enabled"`
	RedisAddr         string `yaml:"redis_addr"`
	RedisPasswordEnv  string `yaml:"redis_password_env"`
	RedisDB           int    `yaml:"redis_db"`
	RedisPoolSize     int    `yaml:"redis_pool_size"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	IncludeHeaders    bool   `yaml:"include_headers"`

	// Tiers overrides the built-in per-tier limits when set.
	Tiers     map[string]gateway.TierLimits     `yaml:"tiers"`
	Endpoints map[string]gateway.EndpointLimits `yaml:"endpoints"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// TelemetryConfig holds metrics and tracing settings.
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name"`
	Environment    string  `yaml:"environment"`
	MetricsEnabled bool    `yaml:"metrics_enabled"`
	MetricsPath    string  `yaml:"metrics_path"`
	TracingEnabled bool    `yaml:"tracing_enabled"`
	OTLPEndpoint   string  `yaml:"otlp_endpoint"`
	SamplingRate   float64 `yaml:"sampling_rate"`
}

// Load reads configuration from a YAML file and applies environment
// overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to defaults when it
// does not. Parse and validation errors are still returned.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := DefaultConfig()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            5001,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    10 * 1024 * 1024,
		},
		Analysis: AnalysisConfig{
			ContextChars:        100,
			MaxEvidence:         3,
			MergeStrategy:       "pairwise",
			ParallelDetectors:   false,
			DocumentConcurrency: 1,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RedisAddr:         "localhost:6379",
			RedisPasswordEnv:  "CASESCREEN_REDIS_PASSWORD",
			RedisDB:           0,
			RedisPoolSize:     10,
			RequestsPerMinute: 120,
			IncludeHeaders:    true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "casescreen",
			Environment:    "development",
			MetricsEnabled: true,
			MetricsPath:    "/metrics",
			OTLPEndpoint:   "localhost:4317",
			SamplingRate:   1.0,
		},
	}
}

// applyEnv honours CASESCREEN_PORT, then PORT.
func (c *Config) applyEnv() error {
	for _, key := range []string{"CASESCREEN_PORT", "PORT"} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a port", ErrInvalidConfig, key, v)
		}
		c.Server.Port = port
		return nil
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: server.max_body_bytes must be positive", ErrInvalidConfig)
	}
	if c.Analysis.ContextChars < 0 {
		return fmt.Errorf("%w: analysis.context_chars must not be negative", ErrInvalidConfig)
	}
	if c.Analysis.MaxEvidence < 1 || c.Analysis.MaxEvidence > 3 {
		return fmt.Errorf("%w: analysis.max_evidence must be between 1 and 3", ErrInvalidConfig)
	}
	switch c.Analysis.MergeStrategy {
	case "pairwise", "mean":
	default:
		return fmt.Errorf("%w: analysis.merge_strategy %q (want pairwise or mean)", ErrInvalidConfig, c.Analysis.MergeStrategy)
	}
	if c.Analysis.DocumentConcurrency < 1 {
		return fmt.Errorf("%w: analysis.document_concurrency must be at least 1", ErrInvalidConfig)
	}
	if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
		return fmt.Errorf("%w: telemetry.sampling_rate must be between 0 and 1", ErrInvalidConfig)
	}
	if c.Telemetry.TracingEnabled && c.Telemetry.OTLPEndpoint == "" {
		return fmt.Errorf("%w: telemetry.otlp_endpoint is required when tracing is enabled", ErrInvalidConfig)
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.RedisAddr == "" {
			return fmt.Errorf("%w: rate_limit.redis_addr is required when rate limiting is enabled", ErrInvalidConfig)
		}
		if c.RateLimit.RequestsPerMinute <= 0 {
			return fmt.Errorf("%w: rate_limit.requests_per_minute must be positive", ErrInvalidConfig)
		}
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// RedisPassword resolves the Redis password from the configured env var.
func (c *Config) RedisPassword() string {
	if c.RateLimit.RedisPasswordEnv == "" {
		return ""
	}
	return os.Getenv(c.RateLimit.RedisPasswordEnv)
}

// AnalyzerConfig converts the analysis section into analyzer settings.
func (c *Config) AnalyzerConfig() (analyzer.Config, error) {
	strategy, err := analyzer.ParseMergeStrategy(c.Analysis.MergeStrategy)
	if err != nil {
		return analyzer.Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return analyzer.Config{
		Evidence: indicator.EvidenceOptions{
			ContextChars: c.Analysis.ContextChars,
			MaxSnippets:  c.Analysis.MaxEvidence,
		},
		MergeStrategy:       strategy,
		ParallelDetectors:   c.Analysis.ParallelDetectors,
		DocumentConcurrency: c.Analysis.DocumentConcurrency,
	}, nil
}

// GatewayConfig converts the rate_limit section into limiter settings.
func (c *Config) GatewayConfig() gateway.RateLimitConfig {
	return gateway.RateLimitConfig{
		DefaultRequestsPerMinute: c.RateLimit.RequestsPerMinute,
		Tiers:                    c.RateLimit.Tiers,
		Endpoints:                c.RateLimit.Endpoints,
		IncludeHeaders:           c.RateLimit.IncludeHeaders,
	}
}
