package propagation

import (
	"fmt"

	"github.com/ready-steady/ode/dopri"
)

// Solver integrates dy/dt = rhs(t, y) from y0 at ts[0] and returns the state
// at every point of ts, flattened point after point.
type Solver interface {
	Solve(rhs func(t float64, y, dydt []float64), y0, ts []float64) ([]float64, error)
}

// DormandPrince is the adaptive Runge-Kutta 4(5) solver from ready-steady/ode.
// Zero tolerances select the defaults below.
type DormandPrince struct {
	AbsoluteTolerance float64
	RelativeTolerance float64
}

const (
	defaultAbsTol = 1e-6
	defaultRelTol = 1e-9
)

// Solve implements Solver.
func (d DormandPrince) Solve(rhs func(t float64, y, dydt []float64), y0, ts []float64) ([]float64, error) {
	cfg := dopri.DefaultConfig()
	cfg.AbsError = defaultAbsTol
	cfg.RelError = defaultRelTol
	if d.AbsoluteTolerance > 0 {
		cfg.AbsError = d.AbsoluteTolerance
	}
	if d.RelativeTolerance > 0 {
		cfg.RelError = d.RelativeTolerance
	}

	integrator, err := dopri.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("configuring dopri: %w", err)
	}
	ys, _, err := integrator.Compute(rhs, y0, ts)
	if err != nil {
		return nil, err
	}
	return ys, nil
}
