package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the scoring pipeline
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Dedup     DedupConfig     `mapstructure:"dedup"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Server    ServerConfig    `mapstructure:"server"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// LLMConfig contains LLM provider settings
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"` // openai
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// AgentsConfig contains agent invocation settings
type AgentsConfig struct {
	CallTimeout      time.Duration `mapstructure:"call_timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryBackoff     time.Duration `mapstructure:"retry_backoff"`
	ContextFloor     float64       `mapstructure:"context_floor"`
	CredibilityFloor float64       `mapstructure:"credibility_floor"`
}

// ScoringConfig contains weighted-consolidation settings
type ScoringConfig struct {
	Configuration       string  `mapstructure:"configuration"` // named weight configuration, empty = auto
	DivergenceThreshold float64 `mapstructure:"divergence_threshold"`
}

// DedupConfig contains duplicate-gate settings
type DedupConfig struct {
	Window              time.Duration `mapstructure:"window"`
	SimilarityThreshold float64       `mapstructure:"similarity_threshold"`
	Backend             string        `mapstructure:"backend"` // memory, redis
}

// PipelineConfig contains orchestrator settings
type PipelineConfig struct {
	WorkDir            string `mapstructure:"work_dir"`
	TargetArticleCount int    `mapstructure:"target_article_count"`
	MaxConcurrent      int    `mapstructure:"max_concurrent"`
	CronSpec           string `mapstructure:"cron_spec"`
	IndexDir           string `mapstructure:"index_dir"`
}

// ArchiveConfig contains run-archiver settings
type ArchiveConfig struct {
	HistoricalDir string        `mapstructure:"historical_dir"`
	Retention     time.Duration `mapstructure:"retention"`
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ServerConfig contains ops HTTP server settings
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	viper.SetConfigName("newsgrade")
	viper.SetConfigType("json")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("NEWSGRADE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Config file is optional - defaults apply when not found
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("general.debug", false)
	viper.SetDefault("general.log_level", "info")

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.3)
	viper.SetDefault("llm.max_tokens", 1024)
	viper.SetDefault("llm.timeout", "30s")

	viper.SetDefault("agents.call_timeout", "30s")
	viper.SetDefault("agents.max_retries", 2)
	viper.SetDefault("agents.retry_backoff", "500ms")
	viper.SetDefault("agents.context_floor", 3.0)
	viper.SetDefault("agents.credibility_floor", 4.0)

	viper.SetDefault("scoring.divergence_threshold", 2.0)

	viper.SetDefault("dedup.window", "168h")
	viper.SetDefault("dedup.similarity_threshold", 0.85)
	viper.SetDefault("dedup.backend", "memory")

	viper.SetDefault("pipeline.work_dir", "./results")
	viper.SetDefault("pipeline.target_article_count", 20)
	viper.SetDefault("pipeline.max_concurrent", 4)
	viper.SetDefault("pipeline.index_dir", "./results.bleve")

	viper.SetDefault("archive.historical_dir", "./historical_archives")
	viper.SetDefault("archive.retention", "720h")

	viper.SetDefault("storage.redis.host", "localhost")
	viper.SetDefault("storage.redis.port", 6379)
	viper.SetDefault("storage.redis.db", 0)
	viper.SetDefault("storage.redis.timeout", "5s")
	viper.SetDefault("storage.postgres.port", 5432)
	viper.SetDefault("storage.postgres.sslmode", "disable")

	viper.SetDefault("server.addr", ":8080")

	viper.SetDefault("telemetry.enabled", true)
}

// overrideFromEnv overrides configuration with environment variables
func overrideFromEnv() {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		viper.Set("llm.api_key", apiKey)
	}

	if host := os.Getenv("REDIS_HOST"); host != "" {
		viper.Set("storage.redis.host", host)
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("storage.redis.port", p)
		}
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		viper.Set("storage.redis.password", password)
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		viper.Set("storage.postgres.url", url)
	}
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		viper.Set("storage.postgres.host", host)
	}
	if port := os.Getenv("POSTGRES_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("storage.postgres.port", p)
		}
	}
	if user := os.Getenv("POSTGRES_USER"); user != "" {
		viper.Set("storage.postgres.user", user)
	}
	if pass := os.Getenv("POSTGRES_PASSWORD"); pass != "" {
		viper.Set("storage.postgres.password", pass)
	}
	if db := os.Getenv("POSTGRES_DB"); db != "" {
		viper.Set("storage.postgres.dbname", db)
	}
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Agents.MaxRetries < 0 {
		return fmt.Errorf("agents.max_retries must be >= 0")
	}
	if config.Agents.ContextFloor < 0.1 || config.Agents.ContextFloor > 10.0 {
		return fmt.Errorf("agents.context_floor must be within 0.1..10.0")
	}
	if config.Dedup.SimilarityThreshold <= 0 || config.Dedup.SimilarityThreshold > 1.0 {
		return fmt.Errorf("dedup.similarity_threshold must be within (0, 1]")
	}
	switch config.Dedup.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported dedup backend: %s", config.Dedup.Backend)
	}
	if config.Pipeline.MaxConcurrent < 1 {
		return fmt.Errorf("pipeline.max_concurrent must be >= 1")
	}
	if config.Scoring.DivergenceThreshold <= 0 {
		return fmt.Errorf("scoring.divergence_threshold must be positive")
	}
	return nil
}

// DSN assembles a Postgres DSN from the configured fields, preferring the URL.
func (c PostgresConfig) DSN() (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}
	if c.Host == "" || c.DBName == "" {
		return "", fmt.Errorf("postgres not configured (storage.postgres.host/dbname or url)")
	}
	ssl := c.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, ssl), nil
}
