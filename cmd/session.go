package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/emotune/internal/formatter"
	"github.com/desertthunder/emotune/internal/models"
	"github.com/desertthunder/emotune/internal/repositories"
	"github.com/desertthunder/emotune/internal/shared"
	"github.com/desertthunder/emotune/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Analyze runs a full start, capture, stop cycle and prints the result.
func (r *Runner) Analyze(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if format == formatter.FormatCSV {
		return fmt.Errorf("%w: csv is only available for history", shared.ErrInvalidArgument)
	}

	source, err := r.source(cmd.String("image"))
	if err != nil {
		return err
	}

	ctl, closeFn, err := r.newController(source, nil)
	if err != nil {
		return err
	}
	defer closeFn()

	ctl.Init(ctx)
	if err := ctl.StartCamera(ctx); err != nil {
		return err
	}

	display, err := ctl.Capture(ctx)
	if stopErr := ctl.StopCamera(ctx); stopErr != nil {
		r.logger.Warn("failed to stop camera", "error", stopErr)
	}
	if err != nil {
		return err
	}

	out, err := formatter.FormatDisplay(display, format)
	if err != nil {
		return err
	}
	return r.writeBytes(out)
}

// Batch analyzes a directory or list of frames and prints one line per frame.
func (r *Runner) Batch(ctx context.Context, cmd *cli.Command) error {
	progress := make(chan tasks.ProgressUpdate, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()
	defer func() {
		close(progress)
		wg.Wait()
	}()

	paths := cmd.Args().Slice()
	if dir := cmd.String("dir"); dir != "" {
		found, err := r.engine.Collect(dir, progress)
		if err != nil {
			return err
		}
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return fmt.Errorf("%w: pass --dir or image paths", shared.ErrMissingArgument)
	}

	rate := cmd.Float64("rate")
	if rate <= 0 {
		rate = r.config.Backend.RateLimit
	}

	result, err := r.engine.BatchAnalyze(ctx, progress, paths, tasks.BatchOpts{
		NumWorkers: cmd.Int("workers"),
		RateLimit:  rate,
		Quality:    r.config.Camera.Quality,
	})
	if result == nil {
		return err
	}

	if cmd.Bool("json") {
		type frame struct {
			Path    string               `json:"path"`
			Display *models.DisplayModel `json:"display,omitempty"`
			Error   string               `json:"error,omitempty"`
		}
		frames := make([]frame, len(result.Frames))
		for i, f := range result.Frames {
			frames[i] = frame{Path: f.Path}
			if f.Err != nil {
				frames[i].Error = f.Err.Error()
			} else {
				frames[i].Display = &f.Display
			}
		}
		if werr := r.writeJSON(map[string]any{
			"total":     result.Total,
			"succeeded": result.Succeeded,
			"failed":    result.Failed,
			"frames":    frames,
		}, true); werr != nil {
			return werr
		}
		return err
	}

	r.writePlainHeader("Batch Analysis")
	for _, f := range result.Frames {
		name := filepath.Base(f.Path)
		if f.Err != nil {
			r.writePlain("✗ %-30s %v\n", name, f.Err)
			continue
		}
		top := ""
		if len(f.Display.SortedScores) > 0 {
			top = fmt.Sprintf("%d%%", f.Display.SortedScores[0].Percentage)
		}
		r.writePlain("✓ %-30s %-10s %5s  %s\n", name, f.Display.DominantEmotion, top, f.Duration.Round(time.Millisecond))
	}
	r.writePlain("\n%d/%d frames analyzed", result.Succeeded, result.Total)
	if result.Failed > 0 {
		r.writePlain(", %d failed", result.Failed)
	}
	r.writePlain("\n")
	return err
}

// SettingsGet prints the backend's session settings.
func (r *Runner) SettingsGet(ctx context.Context, cmd *cli.Command) error {
	settings, err := r.emotion.GetSettings(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(settings, true)
	}

	current := settings.CurrentEmotion
	if current == "" {
		current = "none"
	}
	r.writePlain("Songs before recheck: %d\n", settings.SongsBeforeRecheck)
	r.writePlain("Songs played:         %d\n", settings.SongsPlayed)
	r.writePlain("Current emotion:      %s\n", current)
	r.writePlain("Auto-capture:         %t (every %s)\n", settings.AutoCaptureEnabled, settings.AutoCaptureInterval)
	r.writePlain("Auto-play random:     %t\n", settings.AutoPlayRandomSong)
	return nil
}

// SettingsSet validates and stores a new songs-before-recheck threshold.
func (r *Runner) SettingsSet(ctx context.Context, cmd *cli.Command) error {
	n := cmd.Int("songs-before-recheck")
	if err := models.ValidateSongsBeforeRecheck(n); err != nil {
		return err
	}
	if err := r.emotion.UpdateSettings(ctx, n); err != nil {
		return err
	}
	return r.writePlain("✓ Songs before recheck set to %d\n", n)
}

// Reset zeroes the backend's play counter.
func (r *Runner) Reset(ctx context.Context, cmd *cli.Command) error {
	if err := r.emotion.ResetCounter(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Songs played counter reset\n")
}

// AutoCapture sets the backend auto-capture flag and prints what it confirmed.
func (r *Runner) AutoCapture(ctx context.Context, cmd *cli.Command) error {
	var enable bool
	switch strings.ToLower(cmd.StringArg("state")) {
	case "on", "true", "enable":
		enable = true
	case "off", "false", "disable":
		enable = false
	case "":
		return fmt.Errorf("%w: state (on or off)", shared.ErrMissingArgument)
	default:
		return fmt.Errorf("%w: state must be on or off", shared.ErrInvalidArgument)
	}

	confirmed, err := r.emotion.SetAutoCapture(ctx, enable)
	if err != nil {
		return err
	}

	state := "off"
	if confirmed {
		state = "on"
	}
	return r.writePlain("Auto-capture is %s\n", state)
}

// Health reports backend status.
func (r *Runner) Health(ctx context.Context, cmd *cli.Command) error {
	status, err := r.emotion.Health(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}
	return r.writePlain("✓ %s (%s) at %s\n", status.Status, r.api.BaseURL(), status.Timestamp)
}

// History prints the round journal.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	repo, db, err := repositories.OpenJournal(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to open round journal: %w", err)
	}
	defer db.Close()

	if cmd.Bool("counts") {
		return r.writeEmotionCounts(repo, cmd.String("session"))
	}

	rounds, err := repo.List(map[string]any{
		"session_id": cmd.String("session"),
		"emotion":    cmd.String("emotion"),
		"outcome":    cmd.String("outcome"),
		"limit":      cmd.Int("limit"),
	})
	if err != nil {
		return err
	}
	if len(rounds) == 0 && !r.config.Database.Enabled {
		r.logger.Warn("round journal is disabled; set [database] enabled = true to record rounds")
	}

	out, err := formatter.ExportRounds(rounds, format)
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteFile(path, out); err != nil {
			return err
		}
		return r.writePlain("✓ Wrote %d rounds to %s\n", len(rounds), path)
	}
	return r.writeBytes(out)
}

func (r *Runner) writeEmotionCounts(repo *repositories.RoundRepository, sessionID string) error {
	counts, err := repo.EmotionCounts(sessionID)
	if err != nil {
		return err
	}

	emotions := make([]string, 0, len(counts))
	for emotion := range counts {
		emotions = append(emotions, emotion)
	}
	sort.Slice(emotions, func(i, j int) bool {
		if counts[emotions[i]] != counts[emotions[j]] {
			return counts[emotions[i]] > counts[emotions[j]]
		}
		return emotions[i] < emotions[j]
	})

	r.writePlainHeader("Emotion counts")
	for _, emotion := range emotions {
		r.writePlain("%-10s %d\n", emotion, counts[emotion])
	}
	return nil
}
