package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/emotune/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing, then initializes the journal
// database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		r.logger.Info("using existing config", "path", configPath)
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		config = shared.DefaultConfig()
		r.writePlain("✓ Config written to %s\n", configPath)
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.OpenJournal(config.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Round journal ready at %s\n", config.Database.Path)
	if !config.Database.Enabled {
		r.writePlain("Set [database] enabled = true in %s to record rounds.\n", configPath)
	}
	return nil
}
