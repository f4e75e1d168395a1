// Package config loads service settings from defaults, an optional
// orbitviz.{yaml,toml,json} file and ORBITVIZ_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable; "sim.workers" is read from
// ORBITVIZ_SIM_WORKERS.
const EnvPrefix = "ORBITVIZ"

// ConfigDirEnv names the directory searched for the config file.
const ConfigDirEnv = "ORBITVIZ_CONFIG"

// HTTP configures the listener.
type HTTP struct {
	Addr         string
	TrustProxy   bool
	MaxRunsPerIP int
	WriteTimeout time.Duration
}

// Auth configures bearer-token protection of the run endpoint.
type Auth struct {
	Enabled bool
	Token   string
}

// TLE configures the default dataset and the live proxy.
type TLE struct {
	DefaultFile  string // empty selects the embedded dataset
	LiveEnabled  bool
	SourceURL    string
	ExtraURLs    []string
	DefaultGroup string
	CacheDir     string
	MaxFiles     int
}

// Sim configures the run queue and export.
type Sim struct {
	Workers          int
	Timeout          time.Duration
	MaxDuration      float64
	DefaultFrames    int
	DefaultTLEFrames int
	MaxFrames        int
	FPS              int
	Width            int
	Height           int
	FFmpeg           string
}

// Results configures where artifacts are written.
type Results struct {
	Dir string
}

// Config is the full service configuration.
type Config struct {
	HTTP    HTTP
	Auth    Auth
	TLE     TLE
	Sim     Sim
	Results Results
}

var defaults = map[string]any{
	"http.addr":            ":8080",
	"http.trust_proxy":     false,
	"http.max_runs_per_ip": 2,
	"http.write_timeout":   "5m",

	"auth.enabled": false,
	"auth.token":   "",

	"tle.default_file":  "",
	"tle.live_enabled":  true,
	"tle.source_url":    "https://celestrak.org/NORAD/elements/gp.php",
	"tle.extra_urls":    "",
	"tle.default_group": "active",
	"tle.cache_dir":     "/tmp/orbitviz/tle",
	"tle.max_files":     5,

	"sim.workers":            1,
	"sim.timeout":            "4m",
	"sim.max_duration":       604800,
	"sim.default_frames":     500,
	"sim.default_tle_frames": 100,
	"sim.max_frames":         2000,
	"sim.fps":                30,
	"sim.width":              480,
	"sim.height":             480,
	"sim.ffmpeg":             "ffmpeg",

	"results.dir": "static/results",
}

// New returns a viper instance with defaults, environment binding and, when
// ORBITVIZ_CONFIG is set, the config file from that directory.
func New() (*viper.Viper, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		v.SetConfigName("orbitviz")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}
	return v, nil
}

// Load reads the configuration. Invalid values are logged and replaced by
// their defaults; only auth misconfiguration is an error.
func Load(logger *slog.Logger) (Config, error) {
	v, err := New()
	if err != nil {
		return Config{}, err
	}
	return FromViper(v, logger)
}

// FromViper decodes cfg from an already prepared viper instance.
func FromViper(v *viper.Viper, logger *slog.Logger) (Config, error) {
	r := reader{v: v, logger: logger}

	var cfg Config
	cfg.HTTP = HTTP{
		Addr:         r.str("http.addr"),
		TrustProxy:   r.boolean("http.trust_proxy"),
		MaxRunsPerIP: r.positiveInt("http.max_runs_per_ip"),
		WriteTimeout: r.duration("http.write_timeout"),
	}

	enabled, err := strconv.ParseBool(r.str("auth.enabled"))
	if err != nil {
		return cfg, errors.New("ORBITVIZ_AUTH_ENABLED must be a boolean value (true/false/1/0)")
	}
	cfg.Auth.Enabled = enabled
	if enabled {
		cfg.Auth.Token = r.str("auth.token")
		if cfg.Auth.Token == "" {
			return cfg, errors.New("ORBITVIZ_AUTH_TOKEN is required when auth is enabled")
		}
	}

	cfg.TLE = TLE{
		DefaultFile:  r.str("tle.default_file"),
		LiveEnabled:  r.boolean("tle.live_enabled"),
		SourceURL:    r.str("tle.source_url"),
		ExtraURLs:    r.list("tle.extra_urls"),
		DefaultGroup: r.str("tle.default_group"),
		CacheDir:     r.str("tle.cache_dir"),
		MaxFiles:     r.positiveInt("tle.max_files"),
	}

	cfg.Sim = Sim{
		Workers:          r.positiveInt("sim.workers"),
		Timeout:          r.duration("sim.timeout"),
		MaxDuration:      r.positiveFloat("sim.max_duration"),
		DefaultFrames:    r.positiveInt("sim.default_frames"),
		DefaultTLEFrames: r.positiveInt("sim.default_tle_frames"),
		MaxFrames:        r.positiveInt("sim.max_frames"),
		FPS:              r.positiveInt("sim.fps"),
		Width:            r.positiveInt("sim.width"),
		Height:           r.positiveInt("sim.height"),
		FFmpeg:           r.str("sim.ffmpeg"),
	}
	if cfg.Sim.DefaultFrames > cfg.Sim.MaxFrames {
		logger.Warn("sim.default_frames exceeds sim.max_frames, clamping",
			"default_frames", cfg.Sim.DefaultFrames, "max_frames", cfg.Sim.MaxFrames)
		cfg.Sim.DefaultFrames = cfg.Sim.MaxFrames
	}
	if cfg.Sim.DefaultTLEFrames > cfg.Sim.MaxFrames {
		logger.Warn("sim.default_tle_frames exceeds sim.max_frames, clamping",
			"default_tle_frames", cfg.Sim.DefaultTLEFrames, "max_frames", cfg.Sim.MaxFrames)
		cfg.Sim.DefaultTLEFrames = cfg.Sim.MaxFrames
	}

	cfg.Results.Dir = r.str("results.dir")

	logger.Info("configuration loaded",
		"addr", cfg.HTTP.Addr,
		"auth_enabled", cfg.Auth.Enabled,
		"tle_live_enabled", cfg.TLE.LiveEnabled,
		"tle_source_url", cfg.TLE.SourceURL,
		"sim_workers", cfg.Sim.Workers,
		"sim_timeout_seconds", cfg.Sim.Timeout.Seconds(),
		"results_dir", cfg.Results.Dir,
	)
	return cfg, nil
}

// reader parses individual keys, falling back to the default on bad input.
type reader struct {
	v      *viper.Viper
	logger *slog.Logger
}

func (r reader) str(key string) string {
	return strings.TrimSpace(r.v.GetString(key))
}

func (r reader) invalid(key string, value any) {
	r.logger.Warn("invalid "+key+" value, using default", "value", value, "default", defaults[key])
}

func (r reader) boolean(key string) bool {
	s := r.str(key)
	b, err := strconv.ParseBool(s)
	if err != nil {
		r.invalid(key, s)
		return defaults[key].(bool)
	}
	return b
}

func (r reader) positiveInt(key string) int {
	s := r.str(key)
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		r.invalid(key, s)
		return defaults[key].(int)
	}
	return n
}

func (r reader) positiveFloat(key string) float64 {
	s := r.str(key)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !(f > 0) {
		r.invalid(key, s)
		return float64(defaults[key].(int))
	}
	return f
}

// duration accepts Go durations ("90s") or whole seconds ("90").
func (r reader) duration(key string) time.Duration {
	s := r.str(key)
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		r.invalid(key, s)
		d, _ = time.ParseDuration(defaults[key].(string))
	}
	return d
}

// list splits a comma-separated value; config files may also give a list.
func (r reader) list(key string) []string {
	var out []string
	for _, s := range strings.Split(strings.Join(r.v.GetStringSlice(key), ","), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
