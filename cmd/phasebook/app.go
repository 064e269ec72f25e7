package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rogers-f/phasebook/internal/bridge"
	"github.com/rogers-f/phasebook/internal/config"
	"github.com/rogers-f/phasebook/internal/generate"
	"github.com/rogers-f/phasebook/internal/guard"
	"github.com/rogers-f/phasebook/internal/observability"
	"github.com/rogers-f/phasebook/internal/store"
)

// app is the wired runtime shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB
	bridge *bridge.Bridge

	shutdownTracing func(context.Context) error
}

// openApp loads configuration and hydrates the workflow.
func openApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if ephemeral, _ := cmd.Flags().GetBool("ephemeral"); ephemeral {
		cfg.Ephemeral = true
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	shutdown, err := observability.SetupTracing(cfg.Tracing.Enabled, os.Stderr)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, shutdownTracing: shutdown}

	var (
		kv      store.KV
		events  bridge.EventLog
		exports bridge.ExportLog
	)
	if cfg.Ephemeral {
		kv = store.NewMemoryKV()
		logger.Debug("running with in-memory state")
	} else {
		db, err := store.NewDB(cfg.DBPath)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.db = db
		kv = &store.SQLiteKV{DB: db}
		events = &store.EventRepo{DB: db}
		exports = &store.ExportRepo{DB: db}
	}

	var gen generate.Generator
	llm, err := generate.New(cmd.Context(), generate.ProviderConfig{
		Name:    cfg.Provider.Name,
		APIKey:  cfg.Provider.APIKey,
		Model:   cfg.Provider.Model,
		BaseURL: cfg.Provider.BaseURL,
	})
	if err != nil {
		logger.Debug("generation unavailable", "provider", cfg.Provider.Name, "error", err)
		gen = generate.Unavailable{Err: err}
	} else {
		gen = llm
	}

	b := bridge.NewBridge(
		store.NewStateStore(kv, cfg.StateKey, logger),
		events,
		exports,
		gen,
		guard.NewGuard(guard.GuardConfig{RateLimitPerMinute: cfg.Generation.RateLimitPerMinute}),
		logger,
	)
	b.ExportDir = cfg.ExportDir
	if _, err := b.Hydrate(cmd.Context()); err != nil {
		a.Close()
		return nil, err
	}
	a.bridge = b
	return a, nil
}

// Close flushes spans and closes the database.
func (a *app) Close() {
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(context.Background()); err != nil {
			a.logger.Warn("tracing shutdown", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

// withApp wraps a command body with app setup and teardown.
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}
