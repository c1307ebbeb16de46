// Package config loads application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Tavily     TavilyConfig     `yaml:"tavily" mapstructure:"tavily"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Groq       GroqConfig       `yaml:"groq" mapstructure:"groq"`
	Discovery  DiscoveryConfig  `yaml:"discovery" mapstructure:"discovery"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Breaker    BreakerConfig    `yaml:"breaker" mapstructure:"breaker"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// TavilyConfig holds Tavily search API settings.
type TavilyConfig struct {
	Key     string  `yaml:"key" mapstructure:"key"`
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string  `yaml:"key" mapstructure:"key"`
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	Model   string  `yaml:"model" mapstructure:"model"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
}

// GroqConfig holds Groq API settings (OpenAI-compatible endpoint).
type GroqConfig struct {
	Key   string  `yaml:"key" mapstructure:"key"`
	Model string  `yaml:"model" mapstructure:"model"`
	RPS   float64 `yaml:"rps" mapstructure:"rps"`
}

// DiscoveryConfig configures the URL discovery stage.
type DiscoveryConfig struct {
	Overfetch       int     `yaml:"overfetch" mapstructure:"overfetch"`
	DomainCap       int     `yaml:"domain_cap" mapstructure:"domain_cap"`
	SuccessFraction float64 `yaml:"success_fraction" mapstructure:"success_fraction"`
	MaxRetries      int     `yaml:"max_retries" mapstructure:"max_retries"`
	SampleFraction  float64 `yaml:"sample_fraction" mapstructure:"sample_fraction"`
	CacheTTLMins    int     `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
}

// ExtractConfig configures the extraction cascade.
type ExtractConfig struct {
	TimeoutSecs  int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLMins int `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
}

// PipelineConfig configures orchestration.
type PipelineConfig struct {
	BatchSize        int     `yaml:"batch_size" mapstructure:"batch_size"`
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	MinYieldFraction float64 `yaml:"min_yield_fraction" mapstructure:"min_yield_fraction"`
	Profile          string  `yaml:"profile" mapstructure:"profile"`
}

// CacheConfig configures the in-process TTL cache.
type CacheConfig struct {
	DefaultTTLMins    int `yaml:"default_ttl_mins" mapstructure:"default_ttl_mins"`
	SweepIntervalMins int `yaml:"sweep_interval_mins" mapstructure:"sweep_interval_mins"`
}

// BreakerConfig configures the per-provider circuit breakers.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	CooldownSecs     int `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
	SuccessThreshold int `yaml:"success_threshold" mapstructure:"success_threshold"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// CacheTTL returns the discovery cache TTL as a duration.
func (c DiscoveryConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMins) * time.Minute
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PLATEFUL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("tavily.rps", 2.0)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("perplexity.rps", 1.0)
	v.SetDefault("groq.model", "llama-3.3-70b-versatile")
	v.SetDefault("groq.rps", 2.0)
	v.SetDefault("discovery.overfetch", 2)
	v.SetDefault("discovery.domain_cap", 1)
	v.SetDefault("discovery.success_fraction", 0.5)
	v.SetDefault("discovery.max_retries", 2)
	v.SetDefault("discovery.sample_fraction", 0.3)
	v.SetDefault("discovery.cache_ttl_mins", 15)
	v.SetDefault("extract.timeout_secs", 20)
	v.SetDefault("extract.cache_ttl_mins", 60)
	v.SetDefault("pipeline.batch_size", 3)
	v.SetDefault("pipeline.max_attempts", 2)
	v.SetDefault("pipeline.min_yield_fraction", 0.5)
	v.SetDefault("pipeline.profile", "default")
	v.SetDefault("cache.default_ttl_mins", 15)
	v.SetDefault("cache.sweep_interval_mins", 5)
	v.SetDefault("breaker.failure_threshold", 3)
	v.SetDefault("breaker.cooldown_secs", 30)
	v.SetDefault("breaker.success_threshold", 1)

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

// Validate checks that the configuration can support the given mode.
// Modes: "search" (full pipeline), "check" (URL validation only),
// "serve" (HTTP API).
func (c *Config) Validate(mode string) error {
	var problems []string

	bounds := func() {
		if c.Pipeline.BatchSize < 1 || c.Pipeline.BatchSize > 20 {
			problems = append(problems, "pipeline.batch_size must be between 1 and 20")
		}
		if c.Pipeline.MinYieldFraction <= 0 || c.Pipeline.MinYieldFraction > 1 {
			problems = append(problems, "pipeline.min_yield_fraction must be in (0, 1]")
		}
		if c.Discovery.SampleFraction < 0 || c.Discovery.SampleFraction > 1 {
			problems = append(problems, "discovery.sample_fraction must be in [0, 1]")
		}
	}

	switch mode {
	case "search":
		if c.Tavily.Key == "" {
			problems = append(problems, "tavily.key is required")
		}
		if c.Perplexity.Key == "" && c.Groq.Key == "" {
			problems = append(problems, "at least one extraction key (perplexity.key or groq.key) is required")
		}
		bounds()
	case "check":
		// URL checking needs no provider credentials.
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Tavily.Key == "" {
			problems = append(problems, "tavily.key is required")
		}
		if c.Perplexity.Key == "" && c.Groq.Key == "" {
			problems = append(problems, "at least one extraction key (perplexity.key or groq.key) is required")
		}
		bounds()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
