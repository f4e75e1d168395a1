package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/star/orbitviz/internal/metrics"
)

// ErrRunnerClosed is returned by Submit after Close.
var ErrRunnerClosed = errors.New("runner closed")

// RunnerConfig sizes the run queue.
type RunnerConfig struct {
	Workers int           // concurrent runs (default: 1)
	Timeout time.Duration // per-run deadline, zero for none
	Limits  Limits
}

// job is a unit of work for the run queue.
type job struct {
	ctx    context.Context
	plan   Plan
	result chan<- jobResult
}

type jobResult struct {
	run *Run
	err error
}

// Runner validates requests and executes them on a fixed number of workers.
type Runner struct {
	pipeline *Pipeline
	config   RunnerConfig
	logger   *slog.Logger

	jobs      chan job
	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewRunner starts the workers. Call Close to stop them.
func NewRunner(pipeline *Pipeline, config RunnerConfig, logger *slog.Logger) *Runner {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	r := &Runner{
		pipeline: pipeline,
		config:   config,
		logger:   logger,
		jobs:     make(chan job),
	}
	for i := 0; i < config.Workers; i++ {
		r.wg.Add(1)
		go r.work()
	}
	return r
}

func (r *Runner) work() {
	defer r.wg.Done()
	for j := range r.jobs {
		run, err := r.execute(j)
		j.result <- jobResult{run: run, err: err}
	}
}

func (r *Runner) execute(j job) (*Run, error) {
	// The caller may have given up while the job was queued.
	if err := j.ctx.Err(); err != nil {
		return nil, fmt.Errorf("run canceled before start: %w", err)
	}

	metrics.IncRunsInFlight()
	defer metrics.DecRunsInFlight()

	ctx := j.ctx
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	run, err := r.pipeline.Execute(ctx, j.plan)
	status := string(StatusSuccess)
	if err != nil {
		status = string(StatusError)
	}
	metrics.RecordRun(string(j.plan.SimType), status, run.Elapsed)
	return run, err
}

// Submit validates req and waits for its run to finish. Configuration
// errors are returned without queueing. When ctx ends first, Submit returns
// ctx's error; the worker notices the canceled context between stages.
func (r *Runner) Submit(ctx context.Context, req Request) (*Run, error) {
	plan, err := req.Validate(r.config.Limits)
	if err != nil {
		metrics.RecordRejectedRun(simTypeLabel(req.SimType))
		return nil, err
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, ErrRunnerClosed
	}
	result := make(chan jobResult, 1)
	select {
	case r.jobs <- job{ctx: ctx, plan: plan, result: result}:
		r.mu.RUnlock()
	case <-ctx.Done():
		r.mu.RUnlock()
		return nil, ctx.Err()
	}

	select {
	case res := <-result:
		return res.run, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting runs and waits for in-flight runs to finish.
func (r *Runner) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.jobs)
		r.mu.Unlock()
		r.wg.Wait()
		r.logger.Info("simulation runner stopped")
	})
}

// simTypeLabel bounds the metric label to known modes.
func simTypeLabel(s string) string {
	switch t := SimType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return string(Orbit)
	case Orbit, TLE:
		return string(t)
	}
	return "unknown"
}
