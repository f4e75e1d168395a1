package sim

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/star/orbitviz/internal/orbit"
	"github.com/star/orbitviz/internal/propagation"
	"github.com/star/orbitviz/internal/render"
)

// SimType selects the pipeline of a run.
type SimType string

const (
	// Orbit integrates a planar two-body orbit from fixed initial conditions.
	Orbit SimType = "orbit"
	// TLE reconstructs Keplerian ellipses from element sets.
	TLE SimType = "tle"
)

// Request is the client-facing description of a run.
type Request struct {
	SimType    string  `json:"sim_type"`
	Duration   float64 `json:"duration"`
	SaveFormat string  `json:"save_format"`
	Frames     int     `json:"frames,omitempty"`
	TLE        string  `json:"tle,omitempty"`
	Group      string  `json:"group,omitempty"`
}

// Limits bound what a request may ask for. Defaults apply when a request
// leaves a field empty. Frame defaults differ per mode: orbit runs sample the
// integration, tle runs sample each ellipse.
type Limits struct {
	DefaultDuration  float64
	MaxDuration      float64
	DefaultFrames    int
	DefaultTLEFrames int
	MaxFrames        int
	MaxTLEBytes      int
}

// DefaultLimits mirrors the service defaults.
func DefaultLimits() Limits {
	return Limits{
		DefaultDuration:  6000,
		MaxDuration:      86400 * 7,
		DefaultFrames:    propagation.DefaultSamples,
		DefaultTLEFrames: orbit.DefaultPoints,
		MaxFrames:        2000,
		MaxTLEBytes:      1 << 20,
	}
}

// Plan is a validated request.
type Plan struct {
	SimType  SimType
	Duration float64 // seconds; tle runs draw whole ellipses and ignore it
	Format   render.Format
	Frames   int
	TLE      string
	Group    string
}

// ConfigurationError rejects a request before any computation.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks r against lim and fills in defaults. An empty sim type
// means orbit and an empty format means gif.
func (r Request) Validate(lim Limits) (Plan, error) {
	p := Plan{
		SimType:  SimType(strings.ToLower(strings.TrimSpace(r.SimType))),
		Duration: r.Duration,
		Frames:   r.Frames,
		TLE:      r.TLE,
		Group:    strings.TrimSpace(r.Group),
	}
	if p.SimType == "" {
		p.SimType = Orbit
	}
	if p.SimType != Orbit && p.SimType != TLE {
		return Plan{}, &ConfigurationError{Field: "sim_type", Reason: fmt.Sprintf("unknown simulation type %q", r.SimType)}
	}

	format := r.SaveFormat
	if strings.TrimSpace(format) == "" {
		format = string(render.GIF)
	}
	f, err := render.ParseFormat(format)
	if errors.Is(err, render.ErrUnsupportedFormat) {
		return Plan{}, &ConfigurationError{Field: "save_format", Reason: fmt.Sprintf("unsupported format %q", r.SaveFormat)}
	}
	p.Format = f

	if p.Frames == 0 {
		p.Frames = lim.DefaultFrames
		if p.SimType == TLE && lim.DefaultTLEFrames > 0 {
			p.Frames = lim.DefaultTLEFrames
		}
	}
	if p.Frames < 2 || (lim.MaxFrames > 0 && p.Frames > lim.MaxFrames) {
		return Plan{}, &ConfigurationError{Field: "frames", Reason: fmt.Sprintf("%d outside [2, %d]", p.Frames, lim.MaxFrames)}
	}

	if p.Duration == 0 {
		p.Duration = lim.DefaultDuration
	}
	if !(p.Duration > 0) || math.IsInf(p.Duration, 0) || (lim.MaxDuration > 0 && p.Duration > lim.MaxDuration) {
		return Plan{}, &ConfigurationError{Field: "duration", Reason: fmt.Sprintf("%v s outside (0, %v]", r.Duration, lim.MaxDuration)}
	}

	if p.SimType == TLE {
		if lim.MaxTLEBytes > 0 && len(p.TLE) > lim.MaxTLEBytes {
			return Plan{}, &ConfigurationError{Field: "tle", Reason: fmt.Sprintf("%d bytes exceeds %d byte limit", len(p.TLE), lim.MaxTLEBytes)}
		}
		if p.TLE != "" && p.Group != "" {
			return Plan{}, &ConfigurationError{Field: "group", Reason: "tle and group are mutually exclusive"}
		}
	}
	return p, nil
}
