package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/drai/internal/config"
	"github.com/bimmerbailey/drai/internal/consultation"
	"github.com/bimmerbailey/drai/internal/llm"
	"github.com/bimmerbailey/drai/internal/redact"
)

var cfgFile string

// logLevel is shared by every logger the process builds so that a config
// reload can change verbosity in place.
var logLevel = new(slog.LevelVar)

var rootCmd = &cobra.Command{
	Use:   "drai",
	Short: "Medical records with AI consultations",
	Long: `Drai stores patient medical records reachable by NFC tag and answers
clinical questions about them with a local language model.

Model output is parsed into a diagnosis and a treatment plan; when the model
ignores the requested layout the parser degrades through heuristic and
fallback tiers instead of failing.

Examples:
  drai serve
  drai consult --record patient.json "Why do I wheeze at night?"
  drai parse answer.txt --format json`,
	SilenceUsage: true,
}

// Execute is called by main.main(). It runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.drai.yaml)")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "output format (text, json, table)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto, always, never)")

	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error finding home directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".drai")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("DRAI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || cfgFile != "" {
			fmt.Fprintln(os.Stderr, "Error reading config file:", err)
		}
	}
}

// loadConfig decodes and validates the merged configuration, and points the
// shared log level at it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	level, _ := config.ParseLevel(cfg.Log.Level)
	logLevel.Set(level)
	return cfg, nil
}

// newLogger returns a slog logger writing to w in the given format, gated by
// the shared level.
func newLogger(w io.Writer, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func serviceConfig(cfg *config.Config) consultation.Config {
	return consultation.Config{
		PublicBaseURL:   cfg.Server.PublicBaseURL,
		DegradedRetries: cfg.LLM.DegradedRetries,
		Timeout:         cfg.LLM.Timeout,
		ChatOptions:     llm.ChatOptionsFrom(cfg),
	}
}

func newRedactor(cfg *config.Config) *redact.Redactor {
	return redact.New(cfg.Redaction.Enabled, cfg.Redaction.Patterns)
}
