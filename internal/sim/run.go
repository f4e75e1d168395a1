// Package sim executes simulation runs: it validates a request, drives the
// decode, geometry or propagation stages and exports the animation.
package sim

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/star/orbitviz/internal/frames"
	"github.com/star/orbitviz/internal/orbit"
	"github.com/star/orbitviz/internal/propagation"
	"github.com/star/orbitviz/internal/render"
	"github.com/star/orbitviz/internal/tle"
)

// EarthRadiusKm is the Earth radius drawn under reconstructed orbits.
const EarthRadiusKm = 6378.0

// Status is the outcome of a run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Run describes one executed simulation. Runs are not persisted.
type Run struct {
	ID         string
	SimType    SimType
	Format     render.Format
	Path       string // output file on disk
	File       string // output file name under the results directory
	Duration   float64
	Frames     int
	Satellites int
	Skipped    int
	Status     Status
	Message    string
	Elapsed    time.Duration
}

// GroupFetcher downloads a named live TLE group.
type GroupFetcher interface {
	FetchGroup(ctx context.Context, group string) ([]byte, error)
}

// Pipeline holds the collaborators a run needs. It keeps no per-run state.
type Pipeline struct {
	ResultsDir string
	Export     render.Options // Format and Path are set per run
	Propagator *propagation.Propagator
	Store      *tle.Store   // default dataset for tle runs without text
	Fetcher    GroupFetcher // live groups; nil disables the group field
	Logger     *slog.Logger
	Now        func() time.Time
}

func newRunID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// Execute runs a validated plan to completion. The returned Run is always
// non-nil; on failure its Status is StatusError and no file exists at Path.
func (p *Pipeline) Execute(ctx context.Context, plan Plan) (*Run, error) {
	start := time.Now()
	run := &Run{
		ID:       newRunID(),
		SimType:  plan.SimType,
		Format:   plan.Format,
		Duration: plan.Duration,
		Frames:   plan.Frames,
	}
	run.File = run.ID + plan.Format.Ext()
	run.Path = filepath.Join(p.ResultsDir, run.File)
	logger := p.Logger.With("run_id", run.ID, "sim_type", string(plan.SimType))

	err := p.execute(ctx, plan, run, logger)
	run.Elapsed = time.Since(start)
	if err != nil {
		run.Status = StatusError
		run.Message = err.Error()
		logger.Warn("simulation failed", "error", err, "elapsed_ms", run.Elapsed.Milliseconds())
		return run, err
	}
	run.Status = StatusSuccess
	logger.Info("simulation complete",
		"file", run.File,
		"frames", run.Frames,
		"satellites", run.Satellites,
		"skipped", run.Skipped,
		"elapsed_ms", run.Elapsed.Milliseconds(),
	)
	return run, nil
}

func (p *Pipeline) execute(ctx context.Context, plan Plan, run *Run, logger *slog.Logger) error {
	var seq frames.Sequence
	switch plan.SimType {
	case Orbit:
		cfg := propagation.DefaultConfig(plan.Duration)
		cfg.Samples = plan.Frames
		st, err := p.Propagator.Run(cfg)
		if err != nil {
			return err
		}
		run.Satellites = 1
		seq = frames.FromState(st, cfg.EarthRadius)
	case TLE:
		batch, err := p.batch(ctx, plan, logger)
		if err != nil {
			return err
		}
		if len(batch.Decoded) == 0 {
			return &ConfigurationError{Field: "tle", Reason: fmt.Sprintf("no decodable TLE records (%d skipped)", len(batch.Skipped))}
		}
		run.Satellites, run.Skipped = len(batch.Decoded), len(batch.Skipped)
		seq = frames.FromScene(orbit.NewScene(batch, plan.Frames), EarthRadiusKm)
	default:
		return &ConfigurationError{Field: "sim_type", Reason: fmt.Sprintf("unknown simulation type %q", plan.SimType)}
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("before export: %w", err)
	}

	opts := p.Export
	opts.Format = plan.Format
	opts.Path = run.Path
	return render.Export(ctx, seq, opts, logger)
}

// batch resolves the element sets of a tle run: inline text, a live group, or
// the default dataset, in that order.
func (p *Pipeline) batch(ctx context.Context, plan Plan, logger *slog.Logger) (tle.Batch, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	var text []byte
	switch {
	case strings.TrimSpace(plan.TLE) != "":
		text = []byte(plan.TLE)
	case plan.Group != "":
		if p.Fetcher == nil {
			return tle.Batch{}, &ConfigurationError{Field: "group", Reason: "live TLE fetching is disabled"}
		}
		body, err := p.Fetcher.FetchGroup(ctx, plan.Group)
		if err != nil {
			return tle.Batch{}, fmt.Errorf("fetching group %q: %w", plan.Group, err)
		}
		text = body
	default:
		if p.Store == nil || p.Store.Get() == nil {
			return tle.Batch{}, errors.New("no default TLE dataset loaded")
		}
		return p.Store.Get().Batch, nil
	}

	return tle.Parse(bytes.NewReader(text), now(), logger)
}
