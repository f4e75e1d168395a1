package sim

import (
	"context"
	"errors"
	"image/gif"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/star/orbitviz/internal/orbit"
	"github.com/star/orbitviz/internal/propagation"
	"github.com/star/orbitviz/internal/render"
	"github.com/star/orbitviz/internal/tle"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

const twoSats = `LILACSAT-2
1 40908U 15049K   25040.75362640  .00014926  00000-0  44552-3 0  9999
2 40908  97.5165  58.4844 0008714 220.7406 139.3186 15.34689321519828
AO-07
1 07530U 74089B   25248.59614920 -.00000014  00000-0  20180-3 0  9990
2 07530 101.9976 253.8073 0012015 315.7523 162.7217 12.53691377324855
`

var runIDPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

type stubFetcher struct {
	body  []byte
	err   error
	group string
}

func (f *stubFetcher) FetchGroup(_ context.Context, group string) ([]byte, error) {
	f.group = group
	return f.body, f.err
}

type nanSolver struct{}

func (nanSolver) Solve(_ func(float64, []float64, []float64), y0, ts []float64) ([]float64, error) {
	out := make([]float64, len(ts)*len(y0))
	out[len(out)-1] = math.NaN()
	return out, nil
}

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	store := tle.NewStore()
	batch, err := tle.Parse(strings.NewReader(twoSats), time.Now(), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	store.Set(tle.NewDataset("test", []byte(twoSats), batch, time.Now()))
	return &Pipeline{
		ResultsDir: t.TempDir(),
		Export:     render.Options{Width: 64, Height: 64, FPS: 10},
		Propagator: propagation.NewPropagator(nil, testLogger),
		Store:      store,
		Logger:     testLogger,
	}
}

func TestRequestValidate(t *testing.T) {
	lim := DefaultLimits()
	tests := []struct {
		name  string
		req   Request
		field string // empty when valid
	}{
		{"defaults", Request{}, ""},
		{"orbit gif", Request{SimType: "orbit", Duration: 6000, SaveFormat: "gif"}, ""},
		{"tle mp4", Request{SimType: "TLE", SaveFormat: "MP4", Frames: 100}, ""},
		{"unknown type", Request{SimType: "collision"}, "sim_type"},
		{"bad format", Request{SaveFormat: "avi"}, "save_format"},
		{"negative duration", Request{Duration: -1}, "duration"},
		{"huge duration", Request{Duration: lim.MaxDuration + 1}, "duration"},
		{"one frame", Request{Frames: 1}, "frames"},
		{"too many frames", Request{Frames: lim.MaxFrames + 1}, "frames"},
		{"tle and group", Request{SimType: "tle", TLE: twoSats, Group: "stations"}, "group"},
		{"tle too large", Request{SimType: "tle", TLE: strings.Repeat("x", lim.MaxTLEBytes+1)}, "tle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := tt.req.Validate(lim)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				if plan.Frames < 2 || plan.Duration <= 0 || plan.Format == "" {
					t.Errorf("plan not completed: %+v", plan)
				}
				return
			}
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("error = %v, want *ConfigurationError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

func TestRequestValidateDefaults(t *testing.T) {
	plan, err := Request{}.Validate(DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if plan.SimType != Orbit || plan.Format != render.GIF || plan.Duration != 6000 || plan.Frames != 500 {
		t.Errorf("defaults = %+v", plan)
	}
}

func TestRequestValidateTLEDefaults(t *testing.T) {
	plan, err := Request{SimType: "tle"}.Validate(DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	if plan.Frames != orbit.DefaultPoints {
		t.Fatalf("tle frames = %d, want %d", plan.Frames, orbit.DefaultPoints)
	}

	p := testPipeline(t)
	run, err := p.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if run.Frames != orbit.DefaultPoints {
		t.Errorf("run frames = %d, want %d", run.Frames, orbit.DefaultPoints)
	}
	scene := orbit.NewScene(p.Store.Get().Batch, plan.Frames)
	for _, tr := range scene.Tracks {
		if len(tr.Points) != orbit.DefaultPoints {
			t.Errorf("%s: %d points per orbit, want %d", tr.Name, len(tr.Points), orbit.DefaultPoints)
		}
	}

	f, err := os.Open(run.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	anim, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatalf("decoding %s: %v", run.Path, err)
	}
	if len(anim.Image) != orbit.DefaultPoints {
		t.Errorf("gif has %d frames, want %d", len(anim.Image), orbit.DefaultPoints)
	}

	plan, err = Request{SimType: "tle", Frames: 40}.Validate(DefaultLimits())
	if err != nil || plan.Frames != 40 {
		t.Errorf("explicit frames = %d (%v), want 40", plan.Frames, err)
	}
}

func TestExecuteOrbit(t *testing.T) {
	p := testPipeline(t)
	run, err := p.Execute(context.Background(), Plan{SimType: Orbit, Duration: 6000, Format: render.GIF, Frames: 5})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if run.Status != StatusSuccess {
		t.Errorf("status = %q", run.Status)
	}
	if !runIDPattern.MatchString(run.ID) {
		t.Errorf("run id %q is not 32 hex characters", run.ID)
	}
	if run.File != run.ID+".gif" || run.Path != filepath.Join(p.ResultsDir, run.File) {
		t.Errorf("file %q path %q", run.File, run.Path)
	}
	if _, err := os.Stat(run.Path); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestExecuteTLEInline(t *testing.T) {
	p := testPipeline(t)
	text := twoSats + "JUNK\n1 99999U 00000A   25040.7536264\n2 99999  97.5165  58.4844 0008714\n"
	run, err := p.Execute(context.Background(), Plan{SimType: TLE, Format: render.GIF, Frames: 4, TLE: text})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if run.Satellites != 2 || run.Skipped != 1 {
		t.Errorf("satellites %d skipped %d, want 2 and 1", run.Satellites, run.Skipped)
	}
	if _, err := os.Stat(run.Path); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestExecuteTLEDefaultDataset(t *testing.T) {
	p := testPipeline(t)
	run, err := p.Execute(context.Background(), Plan{SimType: TLE, Format: render.GIF, Frames: 3})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if run.Satellites != 2 {
		t.Errorf("satellites = %d, want 2", run.Satellites)
	}
}

func TestExecuteTLEGroup(t *testing.T) {
	p := testPipeline(t)
	f := &stubFetcher{body: []byte(twoSats)}
	p.Fetcher = f
	run, err := p.Execute(context.Background(), Plan{SimType: TLE, Format: render.GIF, Frames: 3, Group: "stations"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if f.group != "stations" || run.Satellites != 2 {
		t.Errorf("fetched %q, satellites %d", f.group, run.Satellites)
	}

	p.Fetcher = nil
	_, err = p.Execute(context.Background(), Plan{SimType: TLE, Format: render.GIF, Frames: 3, Group: "stations"})
	var ce *ConfigurationError
	if !errors.As(err, &ce) || ce.Field != "group" {
		t.Errorf("error = %v, want group configuration error", err)
	}
}

func TestExecuteTLENothingDecodable(t *testing.T) {
	p := testPipeline(t)
	run, err := p.Execute(context.Background(), Plan{SimType: TLE, Format: render.GIF, Frames: 3, TLE: "ONLY A NAME\n1 2 3\n"})
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *ConfigurationError", err)
	}
	if run.Status != StatusError || run.Message == "" {
		t.Errorf("run = %+v", run)
	}
	assertEmptyDir(t, p.ResultsDir)
}

func TestExecuteNumericalFailure(t *testing.T) {
	p := testPipeline(t)
	p.Propagator = propagation.NewPropagator(nanSolver{}, testLogger)
	run, err := p.Execute(context.Background(), Plan{SimType: Orbit, Duration: 100, Format: render.GIF, Frames: 3})
	var nf *propagation.NumericalFailure
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want *NumericalFailure", err)
	}
	if run.Status != StatusError {
		t.Errorf("status = %q", run.Status)
	}
	assertEmptyDir(t, p.ResultsDir)
}

func TestExecuteExportFailure(t *testing.T) {
	p := testPipeline(t)
	p.ResultsDir = filepath.Join(p.ResultsDir, "does-not-exist")
	_, err := p.Execute(context.Background(), Plan{SimType: Orbit, Duration: 100, Format: render.GIF, Frames: 3})
	var ef *render.ExportFailure
	if !errors.As(err, &ef) {
		t.Fatalf("error = %v, want *ExportFailure", err)
	}
}

func TestRunnerSubmit(t *testing.T) {
	p := testPipeline(t)
	r := NewRunner(p, RunnerConfig{Workers: 2, Timeout: time.Minute, Limits: DefaultLimits()}, testLogger)
	defer r.Close()

	run, err := r.Submit(context.Background(), Request{SimType: "orbit", Duration: 600, SaveFormat: "gif", Frames: 3})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if run.Status != StatusSuccess {
		t.Errorf("status = %q", run.Status)
	}

	_, err = r.Submit(context.Background(), Request{SaveFormat: "webm"})
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Errorf("error = %v, want *ConfigurationError", err)
	}
}

func TestRunnerCanceledContext(t *testing.T) {
	r := NewRunner(testPipeline(t), RunnerConfig{Limits: DefaultLimits()}, testLogger)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Submit(ctx, Request{Frames: 3}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestRunnerClosed(t *testing.T) {
	r := NewRunner(testPipeline(t), RunnerConfig{Limits: DefaultLimits()}, testLogger)
	r.Close()
	r.Close()
	if _, err := r.Submit(context.Background(), Request{Frames: 3}); !errors.Is(err, ErrRunnerClosed) {
		t.Errorf("error = %v, want ErrRunnerClosed", err)
	}
}

func TestSimTypeLabel(t *testing.T) {
	for in, want := range map[string]string{"": "orbit", "ORBIT": "orbit", "tle": "tle", "x; drop": "unknown"} {
		if got := simTypeLabel(in); got != want {
			t.Errorf("simTypeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("results dir not empty: %d entries", len(entries))
	}
}
