package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/drai/internal/api"
	"github.com/bimmerbailey/drai/internal/cache"
	"github.com/bimmerbailey/drai/internal/config"
	"github.com/bimmerbailey/drai/internal/consultation"
	"github.com/bimmerbailey/drai/internal/llm"
	"github.com/bimmerbailey/drai/internal/store"
)

// dbConnectWait bounds the startup wait for Postgres.
const dbConnectWait = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve runs the medical record and consultation HTTP API.

Without database.dsn records are kept in memory and lost on exit; with it
the tables in internal/store/schema.sql must already exist. Without
redis.addr public record lookups are not cached. Changing log.level in the
config file takes effect without a restart.

Examples:
  drai serve
  DRAI_DATABASE_DSN=postgres://drai@localhost/drai?sslmode=disable drai serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Log.Format)
	watchLogLevel(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	recordCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer recordCache.Close()

	provider, err := llm.NewProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}
	if err := provider.Heartbeat(ctx); err != nil {
		logger.Warn("llm provider not reachable, consultations will fail until it is",
			"host", cfg.LLM.Ollama.Host, "error", err)
	}

	svc, err := consultation.New(repo, recordCache, provider, serviceConfig(cfg), logger,
		consultation.WithRedactor(newRedactor(cfg)))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(svc, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return api.Serve(ctx, srv, logger)
}

// watchLogLevel re-reads log.level whenever the config file changes.
func watchLogLevel(logger *slog.Logger) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		level, err := config.ParseLevel(viper.GetString("log.level"))
		if err != nil {
			logger.Warn("ignoring config change", "file", e.Name, "error", err)
			return
		}
		if level != logLevel.Level() {
			logLevel.Set(level)
			logger.Info("log level changed", "level", level.String(), "file", e.Name)
		}
	})
	viper.WatchConfig()
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Repository, error) {
	if cfg.Database.DSN == "" {
		logger.Warn("database.dsn not set, using in-memory store")
		return store.NewMemory(), nil
	}

	pg, err := store.Open(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns, dbConnectWait, logger)
	if err != nil {
		return nil, err
	}
	return pg, nil
}

func openCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.RecordCache, error) {
	if cfg.Redis.Addr == "" {
		return cache.Nop{}, nil
	}
	c, err := cache.NewRedis(ctx, cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Redis.TTL,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("record cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
	return c, nil
}
