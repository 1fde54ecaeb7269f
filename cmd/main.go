package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lovewrapped/internal/shared"
	"github.com/desertthunder/lovewrapped/internal/store"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	ctx := context.Background()
	logger := shared.NewLogger(nil)

	configPath := os.Getenv("WRAPPED_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := shared.LoadConfig(configPath)
		if err != nil {
			logger.Fatalf("failed to load %s: %v", configPath, err)
		}
		config = loaded
	}
	if err := shared.ApplyEnv(ctx, config, ".env"); err != nil {
		logger.Fatalf("failed to read environment: %v", err)
	}
	if level, err := shared.ParseLevel(config.Log.Level); err != nil {
		logger.Warn("unknown log level, using info", "error", err)
	} else {
		shared.SetLogLevel(logger, level)
	}

	kv, db, err := openStorage(ctx, config, logger)
	if err != nil {
		logger.Fatalf("failed to open storage: %v", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		KV:         kv,
		DB:         db,
		Logger:     logger,
	})
	defer runner.Close()

	app := newApp(runner)
	if err := app.Run(ctx, os.Args); err != nil {
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "wrapped",
		Usage:    "Build, share and merge Spotify listening profiles",
		Version:  "0.1.0",
		Writer:   r.output,
		Commands: r.register(),
	}
}

// openStorage opens the configured key/value store and the history database.
//
// The sqlite driver shares one database for both; the redis driver still keeps history in sqlite.
func openStorage(ctx context.Context, config *shared.Config, logger *log.Logger) (store.KV, *sql.DB, error) {
	kv, err := store.Open(ctx, config)
	if err != nil {
		return nil, nil, err
	}

	switch s := kv.(type) {
	case *store.SQLiteKV:
		return kv, s.DB(), nil
	case *store.MemoryKV:
		logger.Debug("memory storage: credentials last for this process only")
		return kv, nil, nil
	}

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		kv.Close()
		return nil, nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return kv, db, nil
}
