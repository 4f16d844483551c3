package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Calculator CalculatorConfig `yaml:"calculator" mapstructure:"calculator"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string      `yaml:"key" mapstructure:"key"`
	Models      StageModels `yaml:"models" mapstructure:"models"`
	MaxTokens   int64       `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64     `yaml:"temperature" mapstructure:"temperature"`
}

// StageModels selects the model used for each generated report section.
type StageModels struct {
	Clinical        string `yaml:"clinical" mapstructure:"clinical"`
	Technical       string `yaml:"technical" mapstructure:"technical"`
	Findings        string `yaml:"findings" mapstructure:"findings"`
	Comparison      string `yaml:"comparison" mapstructure:"comparison"`
	Impression      string `yaml:"impression" mapstructure:"impression"`
	Recommendations string `yaml:"recommendations" mapstructure:"recommendations"`
	Renderer        string `yaml:"renderer" mapstructure:"renderer"`
}

// CalculatorConfig configures the external formula calculator service.
type CalculatorConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// PricingConfig holds per-model token pricing.
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// PipelineConfig configures report assembly and QA behavior.
type PipelineConfig struct {
	MaxHealAttempts        int    `yaml:"max_heal_attempts" mapstructure:"max_heal_attempts"`
	LatencyThresholdMs     int64  `yaml:"latency_threshold_ms" mapstructure:"latency_threshold_ms"`
	MissingMarkerThreshold int    `yaml:"missing_marker_threshold" mapstructure:"missing_marker_threshold"`
	PromptVersion          string `yaml:"prompt_version" mapstructure:"prompt_version"`
	Renderer               string `yaml:"renderer" mapstructure:"renderer"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentCases int `yaml:"max_concurrent_cases" mapstructure:"max_concurrent_cases"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures the background alert checker run by serve.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	S1RateThreshold      float64 `yaml:"s1_rate_threshold" mapstructure:"s1_rate_threshold"`
	QAFailRateThreshold  float64 `yaml:"qa_fail_rate_threshold" mapstructure:"qa_fail_rate_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RADREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "radreport.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent_cases", 4)
	v.SetDefault("calculator.base_url", "http://localhost:8081")
	v.SetDefault("calculator.timeout_secs", 30)
	v.SetDefault("calculator.max_retries", 3)
	v.SetDefault("calculator.rate_per_sec", 20)
	v.SetDefault("pipeline.max_heal_attempts", 2)
	v.SetDefault("pipeline.latency_threshold_ms", 10000)
	v.SetDefault("pipeline.missing_marker_threshold", 2)
	v.SetDefault("pipeline.prompt_version", "v8.7.9")
	v.SetDefault("pipeline.renderer", "llm")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.10)
	v.SetDefault("monitoring.s1_rate_threshold", 0.30)
	v.SetDefault("monitoring.qa_fail_rate_threshold", 0.20)
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.temperature", 0.0)
	v.SetDefault("anthropic.models.clinical", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.models.technical", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.models.findings", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.models.comparison", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.models.impression", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.models.recommendations", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.models.renderer", "claude-haiku-4-5-20251001")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings needed by the given mode are present.
// Modes: "run", "batch", "serve".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "run", "batch", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Anthropic.Key == "" {
		problems = append(problems, "anthropic.key is required")
	}
	if c.Calculator.BaseURL == "" {
		problems = append(problems, "calculator.base_url is required")
	}
	if c.Pipeline.MaxHealAttempts < 0 || c.Pipeline.MaxHealAttempts > 5 {
		problems = append(problems, "pipeline.max_heal_attempts must be between 0 and 5")
	}
	switch c.Pipeline.Renderer {
	case "llm", "template":
	default:
		problems = append(problems, fmt.Sprintf("pipeline.renderer %q is not one of llm, template", c.Pipeline.Renderer))
	}
	switch c.Store.Driver {
	case "none":
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q is not one of sqlite, postgres, none", c.Store.Driver))
	}
	if mode == "batch" && (c.Batch.MaxConcurrentCases < 1 || c.Batch.MaxConcurrentCases > 32) {
		problems = append(problems, "batch.max_concurrent_cases must be between 1 and 32")
	}
	if mode == "serve" && c.Server.Port <= 0 {
		problems = append(problems, "server.port must be > 0")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
