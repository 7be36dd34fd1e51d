package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/emotune/internal/formatter"
	"github.com/desertthunder/emotune/internal/services"
	"github.com/desertthunder/emotune/internal/shared"
	"github.com/desertthunder/emotune/internal/tasks"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request to the backend
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	r.logger.Info("GET request", "path", path)

	resp, err := r.api.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	return r.writeResponse(resp, !cmd.Bool("json"))
}

// APIPost makes a direct POST request to the backend
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	data := cmd.String("data")

	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if data == "" {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}

	r.logger.Info("POST request", "path", path)

	if !json.Valid([]byte(data)) {
		return fmt.Errorf("%w: data is not valid JSON", shared.ErrInvalidInput)
	}

	resp, err := r.api.Post(ctx, path, []byte(data))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	return r.writeResponse(resp, true)
}

func (r *Runner) writeResponse(resp *services.APIResponse, pretty bool) error {
	if !resp.OK() {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, pretty)
	}

	if err := r.writeBytes(resp.Body); err != nil {
		return err
	}
	return r.writePlain("\n")
}

// APIDump fetches /health and /settings for diagnostics.
func (r *Runner) APIDump(ctx context.Context, cmd *cli.Command) error {
	pretty := cmd.Bool("pretty")
	save := cmd.String("save")

	r.logger.Info("dumping backend state")

	progress := make(chan tasks.ProgressUpdate, 4)
	result, err := r.engine.Dump(ctx, progress)
	close(progress)
	for update := range progress {
		r.logger.Info(update.Message, "phase", update.Phase)
	}
	if err != nil {
		return err
	}

	type entry struct {
		Status int    `json:"status,omitempty"`
		Data   any    `json:"data,omitempty"`
		Error  string `json:"error,omitempty"`
	}
	toEntry := func(e tasks.EndpointResult) entry {
		out := entry{Status: e.Status, Data: e.Data}
		if e.Error != nil {
			out.Error = e.Error.Error()
		}
		return out
	}
	dump := map[string]entry{
		"health":   toEntry(result.Health),
		"settings": toEntry(result.Settings),
	}

	if save != "" {
		data, err := json.MarshalIndent(dump, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal dump: %w", err)
		}
		if err := formatter.WriteFile(save, data); err != nil {
			r.logger.Warn("failed to save dump", "error", err)
		} else {
			r.logger.Info("dump saved", "file", save)
		}
	}

	return r.writeJSON(dump, pretty)
}
