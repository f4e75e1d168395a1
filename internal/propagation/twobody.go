package propagation

import "math"

// state vector layout
const (
	ix = iota
	iy
	ivx
	ivy
	stateDim
)

// InitialState places the body at (r0, 0) with the circular orbital speed
// sqrt(GM/r0) along +y.
func InitialState(cfg Config) []float64 {
	r0 := cfg.InitialRadius()
	y := make([]float64, stateDim)
	y[ix] = r0
	y[ivy] = math.Sqrt(cfg.GM / r0)
	return y
}

// TwoBody returns the equations of motion of a point mass around a central
// body with gravitational parameter gm: d/dt [x y vx vy] = [vx vy -gm x/r^3 -gm y/r^3].
func TwoBody(gm float64) func(t float64, y, dydt []float64) {
	return func(_ float64, y, dydt []float64) {
		r := math.Hypot(y[ix], y[iy])
		k := -gm / (r * r * r)
		dydt[ix] = y[ivx]
		dydt[iy] = y[ivy]
		dydt[ivx] = k * y[ix]
		dydt[ivy] = k * y[iy]
	}
}
