package render

import (
	"context"
	"errors"
	"image/gif"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/star/orbitviz/internal/frames"
	"github.com/star/orbitviz/internal/orbit"
	"github.com/star/orbitviz/internal/propagation"
	"github.com/star/orbitviz/internal/tle"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// testSequence is a short planar run on a circle of radius 7.
func testSequence(n int) frames.Sequence {
	st := &propagation.State{}
	for i := 0; i < n; i++ {
		th := 2 * math.Pi * float64(i) / float64(n-1)
		st.T = append(st.T, float64(i))
		st.X = append(st.X, 7e6*math.Cos(th))
		st.Y = append(st.Y, 7e6*math.Sin(th))
		st.VX = append(st.VX, 0)
		st.VY = append(st.VY, 0)
	}
	return frames.FromState(st, propagation.EarthRadius)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"gif", GIF, true},
		{"mp4", MP4, true},
		{" GIF ", GIF, true},
		{"avi", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.ok != (err == nil) || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
		if !tt.ok && !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ParseFormat(%q) error %v does not wrap ErrUnsupportedFormat", tt.in, err)
		}
	}
}

func TestExportGIF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.gif")
	err := Export(context.Background(), testSequence(4), Options{Format: GIF, Path: path, Width: 120, Height: 100, FPS: 20}, testLogger)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	anim, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(anim.Image) != 4 {
		t.Errorf("gif has %d frames, want 4", len(anim.Image))
	}
	if b := anim.Image[0].Bounds(); b.Dx() != 120 || b.Dy() != 100 {
		t.Errorf("frame size %dx%d, want 120x100", b.Dx(), b.Dy())
	}
	if anim.Delay[0] != 5 {
		t.Errorf("delay = %d, want 5", anim.Delay[0])
	}
	assertNoTemp(t, filepath.Dir(path))
}

func TestExportSpatial(t *testing.T) {
	g := orbit.NewGeometry(tle.Elements{SemiMajorAxis: 7000, Eccentricity: 0.01, Inclination: 1.7})
	scene := orbit.Scene{Tracks: []orbit.Track{{Name: "TEST", Geometry: g, Points: g.Points(6)}}, Points: 6}
	path := filepath.Join(t.TempDir(), "scene.gif")
	if err := Export(context.Background(), frames.FromScene(scene, 6378), Options{Format: GIF, Path: path, Width: 80, Height: 80}, testLogger); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("output missing: %v", err)
	}
}

func TestExportUnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "run.gif")
	err := Export(context.Background(), testSequence(3), Options{Format: GIF, Path: path}, testLogger)
	var ef *ExportFailure
	if !errors.As(err, &ef) {
		t.Fatalf("error = %v, want *ExportFailure", err)
	}
	if ef.Path != path {
		t.Errorf("failure path = %q, want %q", ef.Path, path)
	}
}

func TestExportMissingFFmpeg(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.mp4")
	err := Export(context.Background(), testSequence(3), Options{Format: MP4, Path: path, FFmpeg: "orbitviz-no-such-ffmpeg"}, testLogger)
	if !errors.Is(err, ErrEncoderUnavailable) {
		t.Fatalf("error = %v, want ErrEncoderUnavailable", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("output exists after failure: %v", err)
	}
	assertNoTemp(t, dir)
}

func TestExportCanceledRemovesPartial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.gif")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Export(ctx, testSequence(5), Options{Format: GIF, Path: path}, testLogger)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("output exists after cancel: %v", err)
	}
	assertNoTemp(t, dir)
}

func TestExportUnsupportedFormat(t *testing.T) {
	err := Export(context.Background(), testSequence(3), Options{Format: "avi", Path: filepath.Join(t.TempDir(), "x.avi")}, testLogger)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestCanvasClosed(t *testing.T) {
	seq := testSequence(3)
	c, err := NewCanvas(&seq, 50, 50)
	if err != nil {
		t.Fatalf("NewCanvas: %v", err)
	}
	if _, err := c.DrawFrame(0); err != nil {
		t.Fatalf("DrawFrame: %v", err)
	}
	c.Close()
	if _, err := c.DrawFrame(0); !errors.Is(err, errCanvasClosed) {
		t.Errorf("DrawFrame after Close = %v, want errCanvasClosed", err)
	}
	if _, err := NewCanvas(&seq, 0, 10); err == nil {
		t.Error("NewCanvas accepted zero width")
	}
}

func TestProjection(t *testing.T) {
	p := newProjection(viewElevation, viewAzimuth)
	if _, y := p.project(orbit.Vec3{0, 0, 1}); math.Abs(y-math.Cos(viewElevation)) > 1e-12 {
		t.Errorf("z axis projects to height %v", y)
	}
	// The view direction collapses to the origin.
	dir := orbit.Vec3{
		math.Cos(viewElevation) * math.Cos(viewAzimuth),
		math.Cos(viewElevation) * math.Sin(viewAzimuth),
		math.Sin(viewElevation),
	}
	if x, y := p.project(dir); math.Abs(x) > 1e-12 || math.Abs(y) > 1e-12 {
		t.Errorf("view direction projects to (%v, %v)", x, y)
	}
}

func assertNoTemp(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}
