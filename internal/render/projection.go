package render

import (
	"math"

	"github.com/star/orbitviz/internal/orbit"
)

// Default camera of the spatial view, radians.
const (
	viewElevation = 30 * math.Pi / 180
	viewAzimuth   = -60 * math.Pi / 180
)

// projection is an orthographic camera looking at the origin.
type projection struct {
	right, up orbit.Vec3
}

func newProjection(elevation, azimuth float64) projection {
	se, ce := math.Sincos(elevation)
	sa, ca := math.Sincos(azimuth)
	return projection{
		right: orbit.Vec3{-sa, ca, 0},
		up:    orbit.Vec3{-se * ca, -se * sa, ce},
	}
}

func (p projection) project(v orbit.Vec3) (x, y float64) {
	return p.right.Dot(v), p.up.Dot(v)
}
