package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/emotune/internal/camera"
	"github.com/desertthunder/emotune/internal/controller"
	"github.com/desertthunder/emotune/internal/models"
	"github.com/desertthunder/emotune/internal/repositories"
	"github.com/desertthunder/emotune/internal/services"
	"github.com/desertthunder/emotune/internal/session"
	"github.com/desertthunder/emotune/internal/shared"
	"github.com/desertthunder/emotune/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	api        *services.APIService
	emotion    services.Backend
	logger     *log.Logger
	output     io.Writer
	engine     *tasks.Engine
	newTicker  session.TickerFunc
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	API        *services.APIService
	// Emotion defaults to an [services.EmotionService] over API.
	Emotion services.Backend
	Logger  *log.Logger
	Output  io.Writer
	// NewTicker overrides the auto-capture ticker.
	NewTicker session.TickerFunc
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.API == nil {
		opts.API = services.NewAPIService(opts.Config.Backend.URL, nil)
	}
	if opts.Emotion == nil {
		opts.Emotion = services.NewEmotionService(opts.API)
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		api:        opts.API,
		emotion:    opts.Emotion,
		output:     opts.Output,
		newTicker:  opts.NewTicker,
	}
	r.SetLogger(opts.Logger)
	return r
}

// SetLogger replaces the logger used by the runner and everything it builds.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	r.engine = tasks.NewEngine(r.emotion, r.api, logger)
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, tuiCommand, serveCommand, analyzeCommand, batchCommand,
		settingsCommand, resetCommand, autoCaptureCommand, healthCommand, historyCommand, apiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// source builds the configured frame source. A non-empty image overrides it with a single file.
func (r *Runner) source(image string) (camera.Source, error) {
	if image != "" {
		return camera.FileSource{Path: image}, nil
	}
	cfg := r.config.Camera
	return camera.NewSource(cfg.Source, cfg.Path, cfg.Device)
}

func (r *Runner) constraints() camera.Constraints {
	c := camera.DefaultConstraints()
	cfg := r.config.Camera
	if cfg.Width > 0 {
		c.Width = cfg.Width
	}
	if cfg.Height > 0 {
		c.Height = cfg.Height
	}
	if cfg.FacingMode != "" {
		c.FacingMode = cfg.FacingMode
	}
	return c
}

// newController wires camera, session, journal and controller. The returned
// func closes the controller and then the journal.
func (r *Runner) newController(source camera.Source, events chan<- controller.Event) (*controller.Controller, func(), error) {
	var (
		journal models.Journal
		db      *sql.DB
	)
	if r.config.Database.Enabled {
		repo, conn, err := repositories.OpenJournal(r.config.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open round journal: %w", err)
		}
		journal, db = repo, conn
	}

	dev := camera.NewDevice(source, r.config.Camera.Quality, r.logger)
	sess := session.New(r.emotion, session.Options{
		Interval:           r.config.Session.AutoCaptureInterval(),
		SongsBeforeRecheck: r.config.Session.SongsBeforeRecheck,
		NewTicker:          r.newTicker,
		Logger:             r.logger,
	})
	ctl := controller.New(dev, sess, controller.Options{
		Constraints: r.constraints(),
		Journal:     journal,
		Events:      events,
		Logger:      r.logger,
	})

	closeFn := func() {
		ctl.Close()
		if db != nil {
			db.Close()
		}
	}
	return ctl, closeFn, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
