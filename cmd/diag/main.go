package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/star/orbitviz/internal/frames"
	"github.com/star/orbitviz/internal/orbit"
	"github.com/star/orbitviz/internal/propagation"
	"github.com/star/orbitviz/internal/render"
	"github.com/star/orbitviz/internal/sim"
	"github.com/star/orbitviz/internal/tle"
	"github.com/star/orbitviz/web"
)

// earthRadiusKm matches the radius drawn under reconstructed orbits.
const earthRadiusKm = sim.EarthRadiusKm

func main() {
	path := flag.String("tle", "", "TLE file to inspect (default: embedded dataset)")
	points := flag.Int("points", orbit.DefaultPoints, "samples per reconstructed orbit")
	out := flag.String("out", "", "also render the orbits to this .gif or .mp4 file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	var data []byte
	var err error
	if *path == "" {
		data, err = fs.ReadFile(web.Content, web.DefaultTLE)
	} else {
		data, err = os.ReadFile(*path)
	}
	if err != nil {
		fmt.Println("ERROR reading TLE data:", err)
		os.Exit(1)
	}

	batch, err := tle.Parse(bytes.NewReader(data), time.Now(), logger)
	if err != nil {
		fmt.Println("ERROR parsing TLE:", err)
		os.Exit(1)
	}
	fmt.Printf("Decoded %d TLE entries, skipped %d\n", len(batch.Decoded), len(batch.Skipped))
	for _, s := range batch.Skipped {
		fmt.Printf("  skipped %s: %v\n", s.Satellite, s.Err)
	}

	for _, res := range batch.Results {
		if !res.OK() {
			continue
		}
		el := res.Elements
		g := orbit.NewGeometry(el)
		fmt.Printf("%s (NORAD %d) epoch %s\n", el.Label(), el.NORADID, el.Epoch.Format(time.RFC3339))
		fmt.Printf("    a=%.1f km e=%.7f perigee alt=%.1f km apogee alt=%.1f km\n",
			el.SemiMajorAxis, el.Eccentricity, g.Perigee()-earthRadiusKm, g.Apogee()-earthRadiusKm)

		sgp4, err := propagation.NewSGP4Propagator(res.Record.Line1, res.Record.Line2, el.NORADID)
		if err != nil {
			fmt.Printf("    sgp4: %v\n", err)
			continue
		}
		st, err := sgp4.PropagateAt(el.Epoch)
		if err != nil {
			fmt.Printf("    sgp4: %v\n", err)
			continue
		}
		r := orbit.Vec3(st.Position)
		fmt.Printf("    sgp4 |r|=%.1f km plane residual=%.5f\n", r.Norm(), orbit.PlaneResidual(g, r))
	}

	if *out == "" {
		return
	}
	format, err := render.ParseFormat(strings.TrimPrefix(filepath.Ext(*out), "."))
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(1)
	}
	if len(batch.Decoded) == 0 {
		fmt.Println("ERROR: nothing to render")
		os.Exit(1)
	}
	seq := frames.FromScene(orbit.NewScene(batch, *points), earthRadiusKm)
	if err := render.Export(context.Background(), seq, render.Options{Format: format, Path: *out}, logger); err != nil {
		fmt.Println("ERROR rendering:", err)
		os.Exit(1)
	}
	fmt.Printf("Rendered %d frames to %s\n", len(seq.Frames), *out)
}
