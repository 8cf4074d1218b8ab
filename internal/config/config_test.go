package config

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug lowercase", "debug", slog.LevelDebug, false},
		{"info lowercase", "info", slog.LevelInfo, false},
		{"warn lowercase", "warn", slog.LevelWarn, false},
		{"warning lowercase", "warning", slog.LevelWarn, false},
		{"error lowercase", "error", slog.LevelError, false},

		{"DEBUG uppercase", "DEBUG", slog.LevelDebug, false},
		{"WARNING uppercase", "WARNING", slog.LevelWarn, false},
		{"Error mixed", "Error", slog.LevelError, false},

		{"dbg abbrev", "dbg", slog.LevelDebug, false},
		{"inf abbrev", "inf", slog.LevelInfo, false},
		{"err abbrev", "err", slog.LevelError, false},

		{"empty string", "", slog.LevelInfo, false},
		{"invalid", "invalid", slog.LevelInfo, true},
		{"fatal unsupported", "fatal", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LLM.Ollama.Model != "medllama2" {
		t.Errorf("model = %q, want medllama2", cfg.LLM.Ollama.Model)
	}
	if cfg.LLM.Temperature != 0.05 {
		t.Errorf("temperature = %v, want 0.05", cfg.LLM.Temperature)
	}
	if cfg.LLM.MaxTokens != 1024 {
		t.Errorf("max_tokens = %d, want 1024", cfg.LLM.MaxTokens)
	}
	if cfg.LLM.Ollama.NumCtx != 4096 || cfg.LLM.Ollama.TopK != 40 {
		t.Errorf("num_ctx/top_k = %d/%d", cfg.LLM.Ollama.NumCtx, cfg.LLM.Ollama.TopK)
	}
	if cfg.LLM.Ollama.TopP != 0.9 || cfg.LLM.Ollama.RepeatPenalty != 1.2 {
		t.Errorf("top_p/repeat_penalty = %v/%v", cfg.LLM.Ollama.TopP, cfg.LLM.Ollama.RepeatPenalty)
	}
	if cfg.LLM.Ollama.KeepAlive != 5*time.Minute {
		t.Errorf("keep_alive = %v, want 5m", cfg.LLM.Ollama.KeepAlive)
	}
	if cfg.Database.DSN != "" || cfg.Redis.Addr != "" {
		t.Error("database and redis should be disabled by default")
	}
	if len(cfg.Redaction.Patterns) != 5 {
		t.Errorf("redaction patterns = %v", cfg.Redaction.Patterns)
	}
}

func TestLoad_Overrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	yaml := `
log:
  level: debug
llm:
  degraded_retries: 3
  timeout: 30s
  ollama:
    keep_alive: 1m
redis:
  addr: localhost:6379
  ttl: 2m
`
	if err := v.ReadConfig(strings.NewReader(yaml)); err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q", cfg.Log.Level)
	}
	if cfg.LLM.DegradedRetries != 3 || cfg.LLM.Timeout != 30*time.Second {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.LLM.Ollama.KeepAlive != time.Minute {
		t.Errorf("keep_alive = %v", cfg.LLM.Ollama.KeepAlive)
	}
	if cfg.Redis.TTL != 2*time.Minute {
		t.Errorf("redis.ttl = %v", cfg.Redis.TTL)
	}
	if cfg.LLM.Ollama.Model != "medllama2" {
		t.Error("unset keys should keep their defaults")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		v := viper.New()
		SetDefaults(v)
		cfg, err := Load(v)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		return *cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"provider case-insensitive", func(c *Config) { c.LLM.Provider = "Ollama" }, ""},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "gemini" }, "unknown llm provider"},
		{"temperature too high", func(c *Config) { c.LLM.Temperature = 2.5 }, "temperature"},
		{"negative temperature", func(c *Config) { c.LLM.Temperature = -0.1 }, "temperature"},
		{"negative retries", func(c *Config) { c.LLM.DegradedRetries = -1 }, "degraded_retries"},
		{"negative max tokens", func(c *Config) { c.LLM.MaxTokens = -1 }, "max_tokens"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
		{"bad output format", func(c *Config) { c.Format = "yaml" }, "output format"},
		{"redis without ttl", func(c *Config) { c.Redis.Addr = "localhost:6379"; c.Redis.TTL = 0 }, "redis.ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.errMsg == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("error %v does not wrap ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error %q should contain %q", err, tt.errMsg)
			}
		})
	}
}
