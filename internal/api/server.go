package api

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/star/orbitviz/internal/auth"
	"github.com/star/orbitviz/internal/health"
	"github.com/star/orbitviz/internal/metrics"
	"github.com/star/orbitviz/internal/sim"
	"github.com/star/orbitviz/internal/tle"
)

// Runner executes simulation requests.
type Runner interface {
	Submit(ctx context.Context, req sim.Request) (*sim.Run, error)
}

// GroupFetcher downloads live TLE groups.
type GroupFetcher interface {
	FetchGroup(ctx context.Context, group string) ([]byte, error)
}

// Options configures the HTTP surface.
type Options struct {
	Addr         string
	Auth         auth.Config
	TrustProxy   bool
	MaxRunsPerIP int
	MaxRuns      int
	WriteTimeout time.Duration
	ResultsDir   string
	LiveEnabled  bool
	DefaultGroup string
}

// Deps are the collaborators behind the handlers.
type Deps struct {
	Store   *tle.Store
	Runner  Runner
	Fetcher GroupFetcher // nil disables the live proxy
	Cache   *tle.Cache   // nil disables stale fallback
	Web     fs.FS        // index.html
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(opts Options, deps Deps, logger *slog.Logger) *Server {
	if opts.DefaultGroup == "" {
		opts.DefaultGroup = tle.DefaultGroup
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Minute
	}

	mux := http.NewServeMux()
	registerRoutes(mux, opts, deps, logger)

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(opts.Auth)(handler)
	handler = loggingMiddleware(logger, ipPolicy{trustProxy: opts.TrustProxy})(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      opts.WriteTimeout,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

func registerRoutes(mux *http.ServeMux, opts Options, deps Deps, logger *slog.Logger) {
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(deps.Store.Ready))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/tle", tleHandler(deps.Store))
	mux.HandleFunc("GET /api/tle/live", liveTLEHandler(logger, deps.Fetcher, deps.Cache, opts))

	limiter := newRunLimiter(opts.MaxRunsPerIP, opts.MaxRuns)
	mux.HandleFunc("POST /run-simulation", runHandler(logger, deps.Runner, limiter, ipPolicy{trustProxy: opts.TrustProxy}))
	mux.HandleFunc("GET /static/results/{file}", resultHandler(opts.ResultsDir))

	mux.HandleFunc("GET /", indexHandler(deps.Web))
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, ips ipPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", ips.clientIP(r),
			)
		})
	}
}
