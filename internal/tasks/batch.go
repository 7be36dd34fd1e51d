package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/emotune/internal/camera"
	"github.com/desertthunder/emotune/internal/models"
	"github.com/desertthunder/emotune/internal/shared"
	"golang.org/x/time/rate"
)

// BatchOpts contains configuration for batch analysis.
type BatchOpts struct {
	NumWorkers int     // Concurrent workers (default: 2, max: 10)
	RateLimit  float64 // Requests per second (default: 2)
	Quality    int     // JPEG quality (default: camera.DefaultQuality)
}

// FrameResult is the outcome for one image.
type FrameResult struct {
	Path     string
	Display  models.DisplayModel
	Err      error
	Duration time.Duration
}

// BatchResult summarizes a batch run. Frames keep the input order.
type BatchResult struct {
	Total     int
	Succeeded int
	Failed    int
	Frames    []FrameResult
}

type frameJob struct {
	index int
	path  string
}

type frameDone struct {
	index  int
	result FrameResult
}

// CollectFrames lists the image files in dir in name order.
func CollectFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(paths)
	return paths, nil
}

// Collect lists the frames in dir and reports how many were found.
func (e *Engine) Collect(dir string, progress chan<- ProgressUpdate) ([]string, error) {
	paths, err := CollectFrames(dir)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, collectedUpdate(len(paths), dir))
	return paths, nil
}

// BatchAnalyze analyzes every path with a bounded worker pool, pacing requests
// with a rate limiter. Per-frame failures are recorded and the batch continues.
func (e *Engine) BatchAnalyze(ctx context.Context, progress chan<- ProgressUpdate, paths []string, opts BatchOpts) (*BatchResult, error) {
	if e.analyzer == nil {
		return nil, fmt.Errorf("%w: analyzer not initialized", shared.ErrServiceUnavailable)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no frames to analyze", shared.ErrMissingArgument)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 2
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan frameJob)
	results := make(chan frameDone, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.frameWorker(ctx, &wg, limiter, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, p := range paths {
			select {
			case <-ctx.Done():
				return
			case jobs <- frameJob{index: i, path: p}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := &BatchResult{Total: len(paths), Frames: make([]FrameResult, len(paths))}
	seen := make([]bool, len(paths))
	completed := 0
	for done := range results {
		completed++
		seen[done.index] = true
		out.Frames[done.index] = done.result
		if done.result.Err != nil {
			out.Failed++
		} else {
			out.Succeeded++
		}
		e.sendProgress(progress, frameDoneUpdate(completed, len(paths), done.result))
	}

	for i, ok := range seen {
		if !ok {
			out.Frames[i] = FrameResult{Path: paths[i], Err: context.Cause(ctx)}
			out.Failed++
		}
	}

	e.logger.Info("batch complete", "total", out.Total, "succeeded", out.Succeeded, "failed", out.Failed)
	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

// frameWorker analyzes frames from the jobs channel.
func (e *Engine) frameWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan frameJob,
	results chan<- frameDone,
	opts BatchOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			results <- frameDone{index: job.index, result: FrameResult{Path: job.path, Err: err}}
			continue
		}
		results <- frameDone{index: job.index, result: e.analyzeFrame(ctx, job.path, opts)}
	}
}

func (e *Engine) analyzeFrame(ctx context.Context, path string, opts BatchOpts) FrameResult {
	start := time.Now()
	res := FrameResult{Path: path}

	dev := camera.NewDevice(camera.FileSource{Path: path}, opts.Quality, e.logger)
	if err := dev.Acquire(ctx, camera.DefaultConstraints()); err != nil {
		res.Err = err
		return res
	}
	defer dev.Release()
	dev.AttachTo(camera.Discard)

	image, err := dev.Snapshot()
	if err != nil {
		res.Err = fmt.Errorf("failed to read frame: %w", err)
		return res
	}

	result, err := e.analyzer.Analyze(ctx, image)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}

	res.Display = models.NewDisplayModel(result)
	return res
}
