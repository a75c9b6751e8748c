package engine

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/layerlint/internal/diagnostics"
)

// Result is the outcome of validating one project.
type Result struct {
	ProjectDir string
	Report     *diagnostics.Report
	Err        error
}

type job struct {
	index int
	dir   string
}

// RunAll validates several projects with a pool of workers. Results keep the
// order of dirs. Projects not started before ctx is cancelled get ctx's error.
func (e *Engine) RunAll(ctx context.Context, dirs []string, workers int) []Result {
	if workers <= 0 {
		workers = 2
	}
	if workers > len(dirs) {
		workers = len(dirs)
	}

	results := make([]Result, len(dirs))
	for i, dir := range dirs {
		results[i] = Result{ProjectDir: dir, Err: context.Canceled}
	}

	jobs := make(chan job)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go e.runWorker(ctx, i+1, jobs, results, &wg)
	}

feed:
	for i, dir := range dirs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- job{index: i, dir: dir}:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		for i := range results {
			if results[i].Report == nil && errors.Is(results[i].Err, context.Canceled) {
				results[i].Err = err
			}
		}
	}
	return results
}

// runWorker is the loop of one pool goroutine. Each worker writes only the
// result slots of the jobs it receives.
func (e *Engine) runWorker(ctx context.Context, workerID int, jobs <-chan job, results []Result, wg *sync.WaitGroup) {
	defer wg.Done()
	logger := e.logger.With(zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Context cancelled, worker shutting down.", zap.Error(ctx.Err()))
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			report, err := e.Run(ctx, j.dir)
			if err != nil {
				logger.Warn("Project validation failed", zap.String("project_dir", j.dir), zap.Error(err))
			}
			results[j.index] = Result{ProjectDir: j.dir, Report: report, Err: err}
		}
	}
}
