// Package config provides configuration types and helpers for drai.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application-wide configuration.
type Config struct {
	// Format is the CLI output format: text, json or table.
	Format    string          `mapstructure:"format"`
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Redaction RedactionConfig `mapstructure:"redaction"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`

	// PublicBaseURL prefixes the nfc_url returned with public records.
	PublicBaseURL string        `mapstructure:"public_base_url"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds Postgres settings. An empty DSN selects the
// in-memory store.
type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// RedisConfig holds public-record cache settings. An empty Addr disables
// caching.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// LLMConfig holds configuration for LLM providers.
type LLMConfig struct {
	// Provider selects which LLM to use. Only "ollama" is supported.
	Provider string `mapstructure:"provider"`

	// Global settings applied to all providers
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`

	// DegradedRetries is how many extra completions a consultation may
	// request when the response could only be parsed by the fallback tier.
	DegradedRetries int `mapstructure:"degraded_retries"`

	// Timeout bounds a single completion call. Zero means no limit.
	Timeout time.Duration `mapstructure:"timeout"`

	Ollama OllamaConfig `mapstructure:"ollama"`
}

// OllamaConfig holds Ollama-specific settings.
type OllamaConfig struct {
	Host          string        `mapstructure:"host"`           // API endpoint
	Model         string        `mapstructure:"model"`          // Default model name
	KeepAlive     time.Duration `mapstructure:"keep_alive"`     // e.g., "5m"
	NumCtx        int           `mapstructure:"num_ctx"`        // Context window size
	TopK          int           `mapstructure:"top_k"`          // Sampling pool size
	TopP          float32       `mapstructure:"top_p"`          // Nucleus sampling
	RepeatPenalty float32       `mapstructure:"repeat_penalty"` // Repetition penalty
}

// RedactionConfig holds configuration for PHI redaction in debug logs.
type RedactionConfig struct {
	// Enabled controls whether redaction is active
	Enabled bool `mapstructure:"enabled"`

	// Patterns specifies which redaction patterns to use
	// Available: email, phone, date, ssn, ipv4
	Patterns []string `mapstructure:"patterns"`
}

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("format", "text")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.public_base_url", "http://localhost:3000")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 10*time.Minute)

	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.temperature", 0.05)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.degraded_retries", 1)
	v.SetDefault("llm.timeout", 90*time.Second)
	v.SetDefault("llm.ollama.host", "http://localhost:11434")
	v.SetDefault("llm.ollama.model", "medllama2")
	v.SetDefault("llm.ollama.keep_alive", 5*time.Minute)
	v.SetDefault("llm.ollama.num_ctx", 4096)
	v.SetDefault("llm.ollama.top_k", 40)
	v.SetDefault("llm.ollama.top_p", 0.9)
	v.SetDefault("llm.ollama.repeat_penalty", 1.2)

	v.SetDefault("redaction.enabled", true)
	v.SetDefault("redaction.patterns", []string{"email", "phone", "date", "ssn", "ipv4"})
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch c.Format {
	case "text", "json", "table":
	default:
		return fmt.Errorf("%w: unknown output format %q", ErrInvalid, c.Format)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.Log.Format)
	}

	if p := strings.ToLower(c.LLM.Provider); p != "ollama" {
		return fmt.Errorf("%w: unknown llm provider %q (supported: ollama)", ErrInvalid, c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("%w: llm.temperature %v outside [0, 2]", ErrInvalid, c.LLM.Temperature)
	}
	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("%w: llm.max_tokens must not be negative", ErrInvalid)
	}
	if c.LLM.DegradedRetries < 0 {
		return fmt.Errorf("%w: llm.degraded_retries must not be negative", ErrInvalid)
	}
	if c.Redis.Addr != "" && c.Redis.TTL <= 0 {
		return fmt.Errorf("%w: redis.ttl must be positive", ErrInvalid)
	}
	return nil
}

// ParseLevel converts a log level name to a slog.Level. The empty string
// means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug", "dbg":
		return slog.LevelDebug, nil
	case "", "info", "inf":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "err":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
