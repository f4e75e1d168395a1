package propagation

import (
	"fmt"
	"math"
)

// Physical defaults for the planar two-body run, SI units.
const (
	GravitationalConstant = 6.67430e-11 // m^3 kg^-1 s^-2
	EarthMass             = 5.972e24    // kg
	EarthRadius           = 6.378e6     // m
	DefaultAltitude       = 500e3       // m
	DefaultSamples        = 500
)

// Config holds the inputs of one two-body propagation.
type Config struct {
	GM          float64 // gravitational parameter, m^3/s^2
	EarthRadius float64 // m
	Altitude    float64 // initial altitude above EarthRadius, m
	Duration    float64 // s
	Samples     int     // evaluation points over [0, Duration], both ends included
}

// DefaultConfig returns the configuration for a circular 500 km orbit over duration seconds.
func DefaultConfig(duration float64) Config {
	return Config{
		GM:          GravitationalConstant * EarthMass,
		EarthRadius: EarthRadius,
		Altitude:    DefaultAltitude,
		Duration:    duration,
		Samples:     DefaultSamples,
	}
}

// Validate rejects configurations that cannot be integrated.
func (c Config) Validate() error {
	switch {
	case !(c.Duration > 0) || math.IsInf(c.Duration, 0):
		return fmt.Errorf("duration must be positive, got %v", c.Duration)
	case c.Samples < 2:
		return fmt.Errorf("samples must be at least 2, got %d", c.Samples)
	case !(c.GM > 0):
		return fmt.Errorf("gravitational parameter must be positive, got %v", c.GM)
	case !(c.EarthRadius > 0):
		return fmt.Errorf("earth radius must be positive, got %v", c.EarthRadius)
	case c.Altitude < 0:
		return fmt.Errorf("altitude must not be negative, got %v", c.Altitude)
	}
	return nil
}

// InitialRadius is the distance from Earth's center at t = 0.
func (c Config) InitialRadius() float64 {
	return c.EarthRadius + c.Altitude
}

// State is a sampled trajectory. The slices have equal length and are not
// modified after Run returns them.
type State struct {
	T  []float64
	X  []float64
	Y  []float64
	VX []float64
	VY []float64
}

// Len returns the number of samples.
func (s *State) Len() int {
	return len(s.T)
}

// Radius returns the distance from Earth's center at sample i.
func (s *State) Radius(i int) float64 {
	return math.Hypot(s.X[i], s.Y[i])
}
