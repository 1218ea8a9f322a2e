// Package config loads the service configuration and initialises logging.
package config

import (
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Auth        AuthConfig        `yaml:"auth" mapstructure:"auth"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	Categorizer CategorizerConfig `yaml:"categorizer" mapstructure:"categorizer"`
	RateLimit   RateLimitConfig   `yaml:"ratelimit" mapstructure:"ratelimit"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// StoreConfig selects and configures the relational store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "postgres" or "sqlite"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// AuthConfig configures password hashing and token issuance.
type AuthConfig struct {
	JWTSecret          string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	JWTExpirationHours int    `yaml:"jwt_expiration_hours" mapstructure:"jwt_expiration_hours"`
	BcryptCost         int    `yaml:"bcrypt_cost" mapstructure:"bcrypt_cost"`
	PasswordPepper     string `yaml:"password_pepper" mapstructure:"password_pepper"`
}

// LLMConfig configures the language model gateway.
type LLMConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"` // "gemini", "anthropic" or "disabled"
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	Model       string `yaml:"model" mapstructure:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the per-call deadline applied to gateway requests.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// PipelineConfig configures chart of accounts generation.
type PipelineConfig struct {
	// BandingRemediation is applied to generated accounts whose code falls
	// outside the band of their class: "reassign", "reject" or "flag".
	BandingRemediation string `yaml:"banding_remediation" mapstructure:"banding_remediation"`
}

// CategorizerConfig configures transaction categorization.
type CategorizerConfig struct {
	// FallbackConfidence is "split" (0.8 matched, 0.6 unmatched) or "flat" (0.6).
	FallbackConfidence string `yaml:"fallback_confidence" mapstructure:"fallback_confidence"`
	CacheTTLSecs       int    `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
	BatchConcurrency   int    `yaml:"batch_concurrency" mapstructure:"batch_concurrency"`
}

// RateLimitConfig configures per-client request limits.
type RateLimitConfig struct {
	Enabled             bool     `yaml:"enabled" mapstructure:"enabled"`
	DefaultLimit        int      `yaml:"default_limit" mapstructure:"default_limit"`
	DefaultWindowSecs   int      `yaml:"default_window_secs" mapstructure:"default_window_secs"`
	CleanupIntervalSecs int      `yaml:"cleanup_interval_secs" mapstructure:"cleanup_interval_secs"`
	Whitelist           []string `yaml:"whitelist" mapstructure:"whitelist"`
	Blacklist           []string `yaml:"blacklist" mapstructure:"blacklist"`
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
	v.SetEnvPrefix("ACCT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "accounting.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_expiration_hours", 24)
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.password_pepper", "")
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.timeout_secs", 60)
	v.SetDefault("pipeline.banding_remediation", "reassign")
	v.SetDefault("categorizer.fallback_confidence", "split")
	v.SetDefault("categorizer.cache_ttl_secs", 600)
	v.SetDefault("categorizer.batch_concurrency", 4)
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.default_limit", 1000)
	v.SetDefault("ratelimit.default_window_secs", 60)
	v.SetDefault("ratelimit.cleanup_interval_secs", 300)
	v.SetDefault("ratelimit.whitelist", []string{})
	v.SetDefault("ratelimit.blacklist", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects unknown enum values and out-of-range numbers.
func (c *Config) Validate() error {
	if !slices.Contains([]string{"postgres", "sqlite"}, c.Store.Driver) {
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required for the postgres driver")
	}
	if !slices.Contains([]string{"gemini", "anthropic", "disabled"}, c.LLM.Provider) {
		return eris.Errorf("config: unknown llm.provider %q", c.LLM.Provider)
	}
	if !slices.Contains([]string{"reassign", "reject", "flag"}, c.Pipeline.BandingRemediation) {
		return eris.Errorf("config: unknown pipeline.banding_remediation %q", c.Pipeline.BandingRemediation)
	}
	if !slices.Contains([]string{"split", "flat"}, c.Categorizer.FallbackConfidence) {
		return eris.Errorf("config: unknown categorizer.fallback_confidence %q", c.Categorizer.FallbackConfidence)
	}
	if c.Categorizer.BatchConcurrency < 1 {
		return eris.Errorf("config: categorizer.batch_concurrency must be at least 1, got %d", c.Categorizer.BatchConcurrency)
	}
	if c.LLM.TimeoutSecs < 1 {
		return eris.Errorf("config: llm.timeout_secs must be at least 1, got %d", c.LLM.TimeoutSecs)
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
