// Package orbit reconstructs Keplerian orbit ellipses in the Earth-centered
// inertial frame from decoded TLE elements.
//
// Points are sampled on the ellipse in its own plane, shifted by the focal
// offset so that Earth (the focus) sits at the origin, and rotated into the
// inertial frame by the RAAN, inclination and argument-of-perigee rotations.
// All distances are in km.
package orbit

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/star/orbitviz/internal/tle"
)

// DefaultPoints is the number of samples per reconstructed orbit.
const DefaultPoints = 100

// Vec3 is a Cartesian vector.
type Vec3 [3]float64

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Dot returns the inner product of v and w.
func (v Vec3) Dot(w Vec3) float64 {
	return v[0]*w[0] + v[1]*w[1] + v[2]*w[2]
}

// Finite reports whether every component is a finite number.
func (v Vec3) Finite() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Geometry is the orbit ellipse derived from one element set.
type Geometry struct {
	Elements    tle.Elements
	SemiMajor   float64
	SemiMinor   float64
	FocalOffset float64
	Rotation    *mat.Dense
}

// NewGeometry derives the ellipse and its orientation from el.
func NewGeometry(el tle.Elements) Geometry {
	a, e := el.SemiMajorAxis, el.Eccentricity
	return Geometry{
		Elements:    el,
		SemiMajor:   a,
		SemiMinor:   a * math.Sqrt(1-e*e),
		FocalOffset: a * e,
		Rotation:    Rotation(el.RAAN, el.Inclination, el.ArgPerigee),
	}
}

// Points samples n points uniformly in the ellipse parameter over [0, 2π],
// both ends included, so the returned path is closed.
func (g Geometry) Points(n int) []Vec3 {
	if n <= 0 {
		return nil
	}
	thetas := []float64{0}
	if n > 1 {
		thetas = floats.Span(make([]float64, n), 0, 2*math.Pi)
	}

	pts := make([]Vec3, n)
	for i, th := range thetas {
		s, c := math.Sincos(th)
		pts[i] = apply(g.Rotation, Vec3{g.SemiMajor*c - g.FocalOffset, g.SemiMinor * s, 0})
	}
	return pts
}

// Normal returns the unit normal of the orbital plane.
func (g Geometry) Normal() Vec3 {
	return apply(g.Rotation, Vec3{0, 0, 1})
}

// Perigee returns the perigee radius.
func (g Geometry) Perigee() float64 {
	return g.SemiMajor - g.FocalOffset
}

// Apogee returns the apogee radius.
func (g Geometry) Apogee() float64 {
	return g.SemiMajor + g.FocalOffset
}

// PlaneResidual returns the distance of r from the orbital plane relative to |r|.
func PlaneResidual(g Geometry, r Vec3) float64 {
	n := r.Norm()
	if n == 0 {
		return 0
	}
	return math.Abs(g.Normal().Dot(r)) / n
}

// Prefix returns points[:frame] with frame clamped to the slice bounds.
func Prefix(points []Vec3, frame int) []Vec3 {
	switch {
	case frame <= 0:
		return points[:0]
	case frame > len(points):
		return points
	}
	return points[:frame]
}
