package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/emotune/internal/controller"
	"github.com/desertthunder/emotune/internal/shared"
	"github.com/desertthunder/emotune/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive capture session.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	source, err := r.source("")
	if err != nil {
		return err
	}

	events := make(chan controller.Event, 64)
	ctl, closeFn, err := r.newController(source, events)
	if err != nil {
		return err
	}
	defer closeFn()

	model := ui.NewModel(ctx, ctl, events, nil)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
