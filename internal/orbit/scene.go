package orbit

import "github.com/star/orbitviz/internal/tle"

// Track is one satellite's reconstructed path.
type Track struct {
	Name     string
	Geometry Geometry
	Points   []Vec3
}

// Scene holds every satellite of a batch, all advancing on one shared frame index.
type Scene struct {
	Tracks  []Track
	Skipped []tle.Skip
	Points  int
}

// NewScene reconstructs every decoded element set of batch with n points per orbit.
// Records the decoder skipped are carried along for reporting.
func NewScene(batch tle.Batch, n int) Scene {
	if n <= 0 {
		n = DefaultPoints
	}
	s := Scene{
		Tracks:  make([]Track, 0, len(batch.Decoded)),
		Skipped: batch.Skipped,
		Points:  n,
	}
	for _, el := range batch.Decoded {
		g := NewGeometry(el)
		s.Tracks = append(s.Tracks, Track{
			Name:     el.Label(),
			Geometry: g,
			Points:   g.Points(n),
		})
	}
	return s
}

// Frame returns, for the shared frame index, the revealed prefix of every track.
func (s Scene) Frame(frame int) [][]Vec3 {
	out := make([][]Vec3, len(s.Tracks))
	for i, tr := range s.Tracks {
		out[i] = Prefix(tr.Points, frame)
	}
	return out
}

// MaxRadius returns the largest apogee in the scene, in km.
func (s Scene) MaxRadius() float64 {
	var r float64
	for _, tr := range s.Tracks {
		if a := tr.Geometry.Apogee(); a > r {
			r = a
		}
	}
	return r
}
