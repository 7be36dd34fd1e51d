package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/emotune/internal/camera"
	"github.com/desertthunder/emotune/internal/services"
	"github.com/desertthunder/emotune/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	ctx := context.Background()

	configPath := "config.toml"
	if p := os.Getenv("EMOTUNE_CONFIG"); p != "" {
		configPath = p
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	httpClient := services.NewHTTPClient(ctx, config.Backend.Token, config.Backend.Timeout())
	apiService := services.NewAPIService(config.Backend.URL, httpClient).WithRateLimit(config.Backend.RateLimit)

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		API:        apiService,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "emotune",
		Usage:    "Capture a face, read the mood, get a playlist",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		var camErr *camera.Error
		switch {
		case errors.As(err, &camErr):
			logger.Fatal(camErr.Message, "kind", camErr.Kind, "hint", camErr.Kind.Hint())
		case errors.Is(err, shared.ErrNotImplemented):
			logger.Warn("not implemented")
			os.Exit(0)
		case isUserError(err):
			logger.Error(err)
			os.Exit(2)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}

// isUserError reports errors caused by input rather than the environment.
func isUserError(err error) bool {
	return errors.Is(err, shared.ErrInvalidInput) ||
		errors.Is(err, shared.ErrMissingArgument) ||
		errors.Is(err, shared.ErrInvalidArgument)
}
