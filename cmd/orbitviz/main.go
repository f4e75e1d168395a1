package main

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/star/orbitviz/internal/api"
	"github.com/star/orbitviz/internal/auth"
	"github.com/star/orbitviz/internal/config"
	"github.com/star/orbitviz/internal/metrics"
	"github.com/star/orbitviz/internal/propagation"
	"github.com/star/orbitviz/internal/render"
	"github.com/star/orbitviz/internal/sim"
	"github.com/star/orbitviz/internal/tle"
	"github.com/star/orbitviz/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	store := tle.NewStore()
	if err := loadDefaultDataset(store, cfg.TLE.DefaultFile, logger); err != nil {
		logger.Warn("starting without a default TLE dataset", "error", err)
	}

	var fetcher *tle.Fetcher
	var tleCache *tle.Cache
	if cfg.TLE.LiveEnabled {
		fetcher = tle.NewFetcher(cfg.TLE.SourceURL, logger, cfg.TLE.ExtraURLs...)
		tleCache = tle.NewCache(cfg.TLE.CacheDir, cfg.TLE.MaxFiles)
	}

	if err := os.MkdirAll(cfg.Results.Dir, 0755); err != nil {
		logger.Error("cannot create results directory", "dir", cfg.Results.Dir, "error", err)
		os.Exit(1)
	}

	pipeline := &sim.Pipeline{
		ResultsDir: cfg.Results.Dir,
		Export: render.Options{
			FPS:    cfg.Sim.FPS,
			Width:  cfg.Sim.Width,
			Height: cfg.Sim.Height,
			FFmpeg: cfg.Sim.FFmpeg,
		},
		Propagator: propagation.NewPropagator(propagation.DormandPrince{}, logger),
		Store:      store,
		Logger:     logger,
	}
	if fetcher != nil {
		pipeline.Fetcher = fetcher
	}
	limits := sim.DefaultLimits()
	limits.MaxDuration = cfg.Sim.MaxDuration
	limits.DefaultFrames = cfg.Sim.DefaultFrames
	limits.DefaultTLEFrames = cfg.Sim.DefaultTLEFrames
	limits.MaxFrames = cfg.Sim.MaxFrames
	runner := sim.NewRunner(pipeline, sim.RunnerConfig{
		Workers: cfg.Sim.Workers,
		Timeout: cfg.Sim.Timeout,
		Limits:  limits,
	}, logger)

	deps := api.Deps{
		Store:  store,
		Runner: runner,
		Cache:  tleCache,
		Web:    web.Content,
	}
	if fetcher != nil {
		deps.Fetcher = fetcher
	}
	srv := api.NewServer(api.Options{
		Addr:         cfg.HTTP.Addr,
		Auth:         auth.Config{Enabled: cfg.Auth.Enabled, Token: cfg.Auth.Token},
		TrustProxy:   cfg.HTTP.TrustProxy,
		MaxRunsPerIP: cfg.HTTP.MaxRunsPerIP,
		MaxRuns:      cfg.Sim.Workers * 4,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		ResultsDir:   cfg.Results.Dir,
		LiveEnabled:  cfg.TLE.LiveEnabled,
		DefaultGroup: cfg.TLE.DefaultGroup,
	}, deps, logger)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background goroutine to update TLE dataset age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if age, ok := store.Age(time.Now()); ok {
					metrics.SetTLEDatasetAge(age.Seconds())
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server", "addr", cfg.HTTP.Addr, "auth_enabled", cfg.Auth.Enabled, "tle_live_enabled", cfg.TLE.LiveEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	runner.Close()

	logger.Info("server stopped")
}

// loadDefaultDataset decodes the default TLE file, or the embedded dataset
// when path is empty, into store.
func loadDefaultDataset(store *tle.Store, path string, logger *slog.Logger) error {
	source := path
	var data []byte
	var err error
	if path == "" {
		source = "embedded:" + web.DefaultTLE
		data, err = fs.ReadFile(web.Content, web.DefaultTLE)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}

	now := time.Now()
	batch, err := tle.Parse(bytes.NewReader(data), now, logger)
	if err != nil {
		return err
	}
	if len(batch.Decoded) == 0 {
		return errors.New("default TLE dataset has no decodable records")
	}

	ds := tle.NewDataset(source, data, batch, now)
	store.Set(ds)
	metrics.SetTLEDatasetCount(len(batch.Decoded))
	logger.Info("loaded default TLE dataset",
		"source", source,
		"count", len(batch.Decoded),
		"skipped", len(batch.Skipped),
		"epoch_min", ds.EpochRange.Min.Format(time.RFC3339),
		"epoch_max", ds.EpochRange.Max.Format(time.RFC3339),
	)
	return nil
}
