package propagation

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// TEMEState is an SGP4 position and velocity in the TEME frame (km, km/s).
type TEMEState struct {
	Position [3]float64
	Velocity [3]float64
}

// SGP4Propagator wraps go-satellite for one satellite. It is a reference for
// diagnostics only; rendered paths never come from it.
//
// go-satellite takes the Satellite by value, so SGP4 error codes set during
// propagation are not visible here. Failures are detected from the output.
type SGP4Propagator struct {
	sat     satellite.Satellite
	noradID int
}

// NewSGP4Propagator initializes SGP4 from TLE lines.
//
// The lines are checked first because go-satellite calls log.Fatal on
// malformed input.
func NewSGP4Propagator(line1, line2 string, noradID int) (*SGP4Propagator, error) {
	if err := validateTLELines(line1, line2); err != nil {
		return nil, fmt.Errorf("invalid TLE for NORAD %d: %w", noradID, err)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for NORAD %d: code=%d %s", noradID, sat.Error, sat.ErrorStr)
	}
	return &SGP4Propagator{sat: sat, noradID: noradID}, nil
}

func validateTLELines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	return nil
}

// PropagateAt returns the TEME state at t, truncated to whole seconds.
func (p *SGP4Propagator) PropagateAt(t time.Time) (TEMEState, error) {
	t = t.UTC()
	pos, vel := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	r := [3]float64{pos.X, pos.Y, pos.Z}
	for _, v := range r {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return TEMEState{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: output is NaN/Inf", p.noradID)
		}
	}

	// Below the surface or beyond GEO means the model diverged.
	mag := math.Sqrt(r[0]*r[0] + r[1]*r[1] + r[2]*r[2])
	if mag < 6200.0 || mag > 50000.0 {
		return TEMEState{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: unreasonable position magnitude %.1f km", p.noradID, mag)
	}

	return TEMEState{Position: r, Velocity: [3]float64{vel.X, vel.Y, vel.Z}}, nil
}
