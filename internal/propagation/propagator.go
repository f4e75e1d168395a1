// Package propagation integrates the planar two-body problem and wraps SGP4
// as a reference for diagnostics.
package propagation

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/star/orbitviz/internal/metrics"
)

// Propagator runs two-body integrations with a fixed Solver.
// It holds no per-run state and is safe for concurrent use.
type Propagator struct {
	solver Solver
	logger *slog.Logger
}

// NewPropagator creates a propagator. A nil solver selects DormandPrince.
func NewPropagator(solver Solver, logger *slog.Logger) *Propagator {
	if solver == nil {
		solver = DormandPrince{}
	}
	return &Propagator{solver: solver, logger: logger}
}

// Run integrates cfg from t = 0 to cfg.Duration and samples cfg.Samples
// evenly spaced points, endpoints included. Solver errors and non-finite
// output are reported as *NumericalFailure.
func (p *Propagator) Run(cfg Config) (*State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid propagation config: %w", err)
	}

	ts := floats.Span(make([]float64, cfg.Samples), 0, cfg.Duration)
	y0 := InitialState(cfg)

	start := time.Now()
	ys, err := p.solver.Solve(TwoBody(cfg.GM), y0, ts)
	duration := time.Since(start)
	if err != nil {
		err = &NumericalFailure{Reason: "integration failed", Sample: -1, Err: err}
	} else {
		err = checkOutput(ys, len(ts))
	}
	metrics.RecordPropagation(duration, err != nil)
	if err != nil {
		p.logger.Warn("propagation failed", "duration_s", cfg.Duration, "samples", cfg.Samples, "error", err)
		return nil, err
	}

	st := &State{
		T:  ts,
		X:  make([]float64, len(ts)),
		Y:  make([]float64, len(ts)),
		VX: make([]float64, len(ts)),
		VY: make([]float64, len(ts)),
	}
	for i := range ts {
		row := ys[i*stateDim : (i+1)*stateDim]
		st.X[i], st.Y[i], st.VX[i], st.VY[i] = row[ix], row[iy], row[ivx], row[ivy]
	}

	p.logger.Debug("propagation complete",
		"samples", len(ts),
		"duration_s", cfg.Duration,
		"elapsed_ms", duration.Milliseconds(),
	)
	return st, nil
}

func checkOutput(ys []float64, samples int) error {
	if ys == nil {
		return &NumericalFailure{Reason: "solver returned no output", Sample: -1}
	}
	if len(ys) != samples*stateDim {
		return &NumericalFailure{
			Reason: fmt.Sprintf("solver returned %d values, want %d", len(ys), samples*stateDim),
			Sample: -1,
		}
	}
	for i, v := range ys {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &NumericalFailure{Reason: "non-finite state", Sample: i / stateDim}
		}
	}
	return nil
}
