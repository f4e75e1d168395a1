package frames

import (
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/star/orbitviz/internal/orbit"
	"github.com/star/orbitviz/internal/propagation"
	"github.com/star/orbitviz/internal/tle"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

func TestFromStateScalesForDisplay(t *testing.T) {
	st := &propagation.State{
		T:  []float64{0, 10, 20},
		X:  []float64{7e6, 0, -7e6},
		Y:  []float64{0, 7e6, 0},
		VX: []float64{0, 0, 0},
		VY: []float64{0, 0, 0},
	}
	seq := FromState(st, propagation.EarthRadius)

	if seq.Dimension != Planar {
		t.Errorf("dimension = %d, want planar", seq.Dimension)
	}
	if len(seq.Frames) != 3 {
		t.Fatalf("%d frames, want one per sample", len(seq.Frames))
	}
	if got := seq.Frames[1].Markers[0].Position; got != (orbit.Vec3{0, 7, 0}) {
		t.Errorf("frame 1 marker at %v, want (0, 7, 0)", got)
	}
	if got := seq.Background[0].Points[2]; got != (orbit.Vec3{-7, 0, 0}) {
		t.Errorf("background point 2 = %v", got)
	}
	if st.X[0] != 7e6 {
		t.Error("state modified by frame builder")
	}
	if r := seq.Earth[0].Points[0].Norm(); !scalar.EqualWithinAbs(r, 6.378, 1e-12) {
		t.Errorf("earth radius %v display units, want 6.378", r)
	}
	if !scalar.EqualWithinAbs(seq.Extent, 7*extentMargin, 1e-12) {
		t.Errorf("extent = %v", seq.Extent)
	}
	if seq.Frames[2].Caption != "t = 20 s" {
		t.Errorf("caption = %q", seq.Frames[2].Caption)
	}
}

func TestFromStatePropagatedRun(t *testing.T) {
	cfg := propagation.DefaultConfig(6000)
	st, err := propagation.NewPropagator(nil, testLogger).Run(cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	seq := FromState(st, cfg.EarthRadius)
	if len(seq.Frames) != propagation.DefaultSamples {
		t.Fatalf("%d frames, want %d", len(seq.Frames), propagation.DefaultSamples)
	}
	r := cfg.InitialRadius() / DisplayScale
	for i, f := range seq.Frames {
		if d := f.Markers[0].Position.Norm(); math.Abs(d-r)/r > 0.01 {
			t.Fatalf("frame %d marker radius %v, want ~%v", i, d, r)
		}
	}
}

func TestFromSceneRevealsPrefixes(t *testing.T) {
	text := `LILACSAT-2
1 40908U 15049K   25040.75362640  .00014926  00000-0  44552-3 0  9999
2 40908  97.5165  58.4844 0008714 220.7406 139.3186 15.34689321519828
AO-07
1 07530U 74089B   25248.59614920 -.00000014  00000-0  20180-3 0  9990
2 07530 101.9976 253.8073 0012015 315.7523 162.7217 12.53691377324855
`
	batch, err := tle.Parse(strings.NewReader(text), time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	scene := orbit.NewScene(batch, 40)
	seq := FromScene(scene, 6378)

	if seq.Dimension != Spatial || len(seq.Frames) != 40 {
		t.Fatalf("dimension %d with %d frames", seq.Dimension, len(seq.Frames))
	}
	if len(seq.Series) != 2 || seq.Series[1] != "AO-07" {
		t.Errorf("series = %v", seq.Series)
	}
	if len(seq.Frames[0].Markers) != 0 {
		t.Errorf("frame 0 has %d markers, want none", len(seq.Frames[0].Markers))
	}
	for i, f := range seq.Frames {
		for _, p := range f.Paths {
			if len(p.Points) != i {
				t.Fatalf("frame %d series %d reveals %d points", i, p.Series, len(p.Points))
			}
		}
	}

	// km -> display units.
	want := scene.Tracks[0].Points[5]
	got := seq.Frames[10].Paths[0].Points[5]
	for k := range got {
		if !scalar.EqualWithinAbs(got[k], want[k]/1e3, 1e-9) {
			t.Fatalf("point = %v, want %v scaled by 1e-3", got, want)
		}
	}
	if len(seq.Earth) != sphereMeridians+sphereParallels {
		t.Errorf("earth wireframe has %d paths", len(seq.Earth))
	}
	for _, p := range seq.Earth {
		for _, q := range p.Points {
			if !scalar.EqualWithinAbs(q.Norm(), 6.378, 1e-9) {
				t.Fatalf("wireframe point off sphere: %v", q)
			}
		}
	}
}
