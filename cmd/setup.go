package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/lovewrapped/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file if missing and initializes the database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if !cmd.IsSet("config") && r.configPath != "" {
		configPath = r.configPath
	}

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
		}
		config = shared.DefaultConfig()
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", config.Database.Path)

	r.writePlain("✓ Database ready at %s\n", config.Database.Path)
	if err := config.Validate(); err != nil {
		r.writePlainln("Next steps:")
		r.writePlain("1. Set credentials.spotify.client_id in %s (or WRAPPED_SPOTIFY_CLIENT_ID)\n", configPath)
		r.writePlain("2. Run 'wrapped auth login'\n")
		return nil
	}
	r.writePlain("Run 'wrapped auth login' to authorize\n")
	return nil
}
