package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/emotune/internal/models"
	"github.com/desertthunder/emotune/internal/services"
	"github.com/desertthunder/emotune/internal/shared"
)

// Analyzer submits a single frame.
type Analyzer interface {
	Analyze(ctx context.Context, jpeg []byte) (*models.AnalysisResult, error)
}

// APIClient defines the raw request surface used by [Engine.Dump].
type APIClient interface {
	Get(ctx context.Context, path string) (*services.APIResponse, error)
}

// Engine runs batch jobs.
type Engine struct {
	analyzer Analyzer
	api      APIClient
	logger   *log.Logger
}

// NewEngine creates an engine. Either dependency may be nil if the
// operations needing it are not used.
func NewEngine(analyzer Analyzer, api APIClient, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{analyzer: analyzer, api: api, logger: shared.WithLogger(logger, "component", "tasks")}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// EndpointResult represents the result of fetching data from a single endpoint.
type EndpointResult struct {
	Endpoint string
	Status   int
	Data     any
	Error    error
}

// DumpResult holds the raw diagnostics payloads.
type DumpResult struct {
	Health   EndpointResult
	Settings EndpointResult
}

// Failed returns the endpoints that could not be fetched.
func (d *DumpResult) Failed() []EndpointResult {
	var out []EndpointResult
	for _, r := range []EndpointResult{d.Health, d.Settings} {
		if r.Error != nil {
			out = append(out, r)
		}
	}
	return out
}

// Dump fetches /health and /settings. Failures are collected per endpoint
// instead of aborting.
func (e *Engine) Dump(ctx context.Context, progress chan<- ProgressUpdate) (*DumpResult, error) {
	if e.api == nil {
		return nil, fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}

	ops := []struct {
		path   string
		phase  Phase
		target *EndpointResult
	}{
		{"/health", FetchHealth, nil},
		{"/settings", FetchSettings, nil},
	}
	result := &DumpResult{}
	ops[0].target = &result.Health
	ops[1].target = &result.Settings

	for i, op := range ops {
		e.sendProgress(progress, endpointUpdate(op.phase, i+1, len(ops), op.path))

		*op.target = EndpointResult{Endpoint: op.path}
		resp, err := e.api.Get(ctx, op.path)
		if err != nil {
			op.target.Error = err
			e.logger.Warn("endpoint fetch failed", "path", op.path, "error", err)
			continue
		}

		op.target.Status = resp.StatusCode
		op.target.Data = resp.JSONData
		if !resp.IsJSON {
			op.target.Data = string(resp.Body)
		}
		if !resp.OK() {
			op.target.Error = fmt.Errorf("%w: HTTP %d", shared.ErrAPIRequest, resp.StatusCode)
		}
	}

	if len(result.Failed()) == len(ops) {
		return result, fmt.Errorf("%w: no endpoint reachable", shared.ErrServiceUnavailable)
	}
	return result, nil
}
