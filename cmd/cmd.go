// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand creates the config file and migrates the journal database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml and initialize the round journal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// tuiCommand returns the top-level TUI command for an interactive session.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive capture session",
		Action:  r.TUI,
	}
}

// serveCommand runs the headless control surface.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the JSON control surface on the configured address",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default from [server] config)",
			},
			&cli.BoolFlag{
				Name:  "start-camera",
				Usage: "Acquire the camera on startup",
			},
		},
		Action: r.Serve,
	}
}

// analyzeCommand runs one start, capture, stop cycle.
func analyzeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Capture one frame and print the analysis",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "image",
				Aliases: []string{"i"},
				Usage:   "Image file to analyze instead of the configured camera",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (text, markdown, json)",
				Value:   "text",
			},
		},
		Action: r.Analyze,
	}
}

// batchCommand analyzes many frames with a worker pool.
func batchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "batch",
		Usage:     "Analyze every image in a directory or argument list",
		ArgsUsage: "[image ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Directory of .jpg/.png frames",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent workers (max 10)",
				Value: 2,
			},
			&cli.Float64Flag{
				Name:  "rate",
				Usage: "Requests per second (default from [backend] rate_limit)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output JSON",
			},
		},
		Action: r.Batch,
	}
}

// settingsCommand reads and writes backend session settings.
func settingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Backend session settings",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Show current settings",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
				},
				Action: r.SettingsGet,
			},
			{
				Name:  "set",
				Usage: "Update songs before recheck",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "songs-before-recheck",
						Aliases:  []string{"n"},
						Usage:    "Songs to play before re-analyzing (1-10)",
						Required: true,
					},
				},
				Action: r.SettingsSet,
			},
		},
	}
}

func resetCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "reset",
		Usage:  "Reset the songs played counter",
		Action: r.Reset,
	}
}

func autoCaptureCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auto-capture",
		Usage: "Turn backend auto-capture on or off",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "state",
			},
		},
		Action: r.AutoCapture,
	}
}

func healthCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check backend health",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output JSON",
			},
		},
		Action: r.Health,
	}
}

// historyCommand prints the round journal.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show journaled rounds",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "session",
				Usage: "Only rounds from this session ID",
			},
			&cli.StringFlag{
				Name:  "emotion",
				Usage: "Only rounds with this dominant emotion",
			},
			&cli.StringFlag{
				Name:  "outcome",
				Usage: "Only rounds with this outcome (ok, error, discarded)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Most recent N rounds",
				Value: 50,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (text, csv, markdown, json)",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "counts",
				Usage: "Tally successful rounds by dominant emotion",
			},
		},
		Action: r.History,
	}
}

// apiCommand handles direct backend API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the analysis backend",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
			{
				Name:  "dump",
				Usage: "Fetch /health and /settings for diagnostics",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
					&cli.StringFlag{
						Name:  "save",
						Usage: "Also write the dump to this file",
					},
				},
				Action: r.APIDump,
			},
		},
	}
}
