package orbit

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

var identity3 = mat.NewDiagDense(3, []float64{1, 1, 1})

// R1 is the active rotation by x about the first (x) axis.
func R1(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	})
}

// R3 is the active rotation by x about the third (z) axis.
func R3(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	})
}

// Rotation composes the perifocal-to-inertial rotation R3(raan) * R1(inc) * R3(argp):
// RAAN about the polar axis, then inclination about the line of nodes, then
// argument of perigee about the orbit normal.
func Rotation(raan, inc, argp float64) *mat.Dense {
	var nodes, full mat.Dense
	nodes.Mul(R3(raan), R1(inc))
	full.Mul(&nodes, R3(argp))
	return &full
}

// IsOrthonormal reports whether m is a proper rotation within tol.
func IsOrthonormal(m mat.Matrix, tol float64) bool {
	var p mat.Dense
	p.Mul(m.T(), m)
	return mat.EqualApprox(&p, identity3, tol) && math.Abs(mat.Det(m)-1) <= tol
}

// apply returns m * v for a 3x3 matrix.
func apply(m mat.Matrix, v Vec3) Vec3 {
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(3, []float64{v[0], v[1], v[2]}))
	return Vec3{out.AtVec(0), out.AtVec(1), out.AtVec(2)}
}
