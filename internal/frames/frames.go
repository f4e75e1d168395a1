// Package frames turns trajectories into ordered animation frames in display
// units. It only rescales coordinates for drawing; physical values are never
// modified.
package frames

import (
	"fmt"
	"math"

	"github.com/star/orbitviz/internal/orbit"
	"github.com/star/orbitviz/internal/propagation"
)

// DisplayScale converts meters into display units (megameters).
const DisplayScale = 1e6

const (
	earthCircleSegments = 100
	sphereMeridians     = 12
	sphereParallels     = 7
	sphereSegments      = 48
	extentMargin        = 1.1
)

// Dimension selects planar or spatial drawing.
type Dimension int

const (
	Planar  Dimension = 2
	Spatial Dimension = 3
)

// Path is a polyline. Series indexes Sequence.Series and fixes the color
// across frames; -1 marks reference geometry.
type Path struct {
	Series int
	Points []orbit.Vec3
}

// Marker is a single moving point.
type Marker struct {
	Series   int
	Position orbit.Vec3
}

// Frame is one animation step.
type Frame struct {
	Caption string
	Paths   []Path
	Markers []Marker
}

// Sequence is an ordered set of frames plus the geometry drawn under every frame.
type Sequence struct {
	Dimension  Dimension
	Title      string
	Series     []string
	Background []Path
	Earth      []Path
	Frames     []Frame
	// Extent is the half-width of the drawing area around the origin.
	Extent float64
}

// FromState builds the planar sequence of a two-body run: the whole
// trajectory as background, one marker per sample and the Earth disc outline.
// earthRadius is in meters.
func FromState(st *propagation.State, earthRadius float64) Sequence {
	n := st.Len()
	track := make([]orbit.Vec3, n)
	var extent float64
	for i := 0; i < n; i++ {
		p := orbit.Vec3{st.X[i] / DisplayScale, st.Y[i] / DisplayScale, 0}
		track[i] = p
		extent = math.Max(extent, math.Max(math.Abs(p[0]), math.Abs(p[1])))
	}

	seq := Sequence{
		Dimension:  Planar,
		Title:      "Two-body orbit",
		Series:     []string{"Satellite"},
		Background: []Path{{Series: 0, Points: track}},
		Earth:      []Path{{Series: -1, Points: circle(earthRadius / DisplayScale)}},
		Frames:     make([]Frame, n),
		Extent:     math.Max(extent, earthRadius/DisplayScale) * extentMargin,
	}
	for i := 0; i < n; i++ {
		seq.Frames[i] = Frame{
			Caption: fmt.Sprintf("t = %.0f s", st.T[i]),
			Markers: []Marker{{Series: 0, Position: track[i]}},
		}
	}
	return seq
}

// FromScene builds the spatial sequence of reconstructed orbits. Frame i
// reveals the first i points of every track and marks each track's head.
// Scene coordinates and earthRadius are in km.
func FromScene(scene orbit.Scene, earthRadius float64) Sequence {
	const kmToDisplay = 1e3 / DisplayScale

	tracks := make([][]orbit.Vec3, len(scene.Tracks))
	series := make([]string, len(scene.Tracks))
	for i, tr := range scene.Tracks {
		series[i] = tr.Name
		pts := make([]orbit.Vec3, len(tr.Points))
		for j, p := range tr.Points {
			pts[j] = orbit.Vec3{p[0] * kmToDisplay, p[1] * kmToDisplay, p[2] * kmToDisplay}
		}
		tracks[i] = pts
	}

	seq := Sequence{
		Dimension: Spatial,
		Title:     "Satellite orbits",
		Series:    series,
		Earth:     sphere(earthRadius * kmToDisplay),
		Frames:    make([]Frame, scene.Points),
		Extent:    math.Max(scene.MaxRadius(), earthRadius) * kmToDisplay * extentMargin,
	}
	for i := range seq.Frames {
		f := Frame{
			Caption: fmt.Sprintf("frame %d/%d", i+1, scene.Points),
			Paths:   make([]Path, 0, len(tracks)),
			Markers: make([]Marker, 0, len(tracks)),
		}
		for s, pts := range tracks {
			prefix := orbit.Prefix(pts, i)
			f.Paths = append(f.Paths, Path{Series: s, Points: prefix})
			if len(prefix) > 0 {
				f.Markers = append(f.Markers, Marker{Series: s, Position: prefix[len(prefix)-1]})
			}
		}
		seq.Frames[i] = f
	}
	return seq
}

func circle(r float64) []orbit.Vec3 {
	pts := make([]orbit.Vec3, earthCircleSegments+1)
	for i := range pts {
		s, c := math.Sincos(2 * math.Pi * float64(i) / earthCircleSegments)
		pts[i] = orbit.Vec3{r * c, r * s, 0}
	}
	return pts
}

// sphere returns a wireframe of meridians and parallels.
func sphere(r float64) []Path {
	paths := make([]Path, 0, sphereMeridians+sphereParallels)
	for m := 0; m < sphereMeridians; m++ {
		lon := 2 * math.Pi * float64(m) / sphereMeridians
		pts := make([]orbit.Vec3, sphereSegments+1)
		for k := range pts {
			lat := -math.Pi/2 + math.Pi*float64(k)/sphereSegments
			pts[k] = spherical(r, lat, lon)
		}
		paths = append(paths, Path{Series: -1, Points: pts})
	}
	for p := 1; p <= sphereParallels; p++ {
		lat := -math.Pi/2 + math.Pi*float64(p)/(sphereParallels+1)
		pts := make([]orbit.Vec3, sphereSegments+1)
		for k := range pts {
			pts[k] = spherical(r, lat, 2*math.Pi*float64(k)/sphereSegments)
		}
		paths = append(paths, Path{Series: -1, Points: pts})
	}
	return paths
}

func spherical(r, lat, lon float64) orbit.Vec3 {
	sl, cl := math.Sincos(lat)
	so, co := math.Sincos(lon)
	return orbit.Vec3{r * cl * co, r * cl * so, r * sl}
}
