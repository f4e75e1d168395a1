package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitviz_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orbitviz_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitviz_runs_total",
			Help: "Simulation runs by mode and terminal status.",
		},
		[]string{"sim_type", "status"},
	)

	runDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orbitviz_run_duration_seconds",
			Help:    "Wall time of a simulation run, from validation to artifact.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		},
		[]string{"sim_type"},
	)

	runsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitviz_runs_in_flight",
		Help: "Simulation runs currently executing.",
	})

	propagationDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orbitviz_propagation_duration_seconds",
		Help:    "Two-body integration time per run.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	})

	propagationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitviz_propagation_failures_total",
		Help: "Integrations that failed or produced non-finite states.",
	})

	tleRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitviz_tle_records_total",
			Help: "TLE records processed by the batch decoder.",
		},
		[]string{"result"},
	)

	tleDatasetCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitviz_tle_dataset_satellites",
		Help: "Decoded satellites in the default dataset.",
	})

	tleDatasetAge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitviz_tle_dataset_age_seconds",
		Help: "Seconds since the default dataset was loaded.",
	})

	liveFetchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitviz_live_fetch_errors_total",
			Help: "Live TLE proxy failures by reason.",
		},
		[]string{"reason"},
	)

	rateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitviz_rate_limited_total",
		Help: "Simulation requests rejected by the per-IP limiter.",
	})
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		runsTotal,
		runDurationSeconds,
		runsInFlight,
		propagationDurationSeconds,
		propagationFailuresTotal,
		tleRecordsTotal,
		tleDatasetCount,
		tleDatasetAge,
		liveFetchErrorsTotal,
		rateLimitedTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRun counts a finished run and observes its duration.
func RecordRun(simType, status string, d time.Duration) {
	runsTotal.WithLabelValues(simType, status).Inc()
	runDurationSeconds.WithLabelValues(simType).Observe(d.Seconds())
}

// RecordRejectedRun counts a request refused before execution.
func RecordRejectedRun(simType string) {
	runsTotal.WithLabelValues(simType, "rejected").Inc()
}

func IncRunsInFlight() { runsInFlight.Inc() }
func DecRunsInFlight() { runsInFlight.Dec() }

// RecordPropagation observes one integration; failed integrations are also counted.
func RecordPropagation(d time.Duration, failed bool) {
	propagationDurationSeconds.Observe(d.Seconds())
	if failed {
		propagationFailuresTotal.Inc()
	}
}

// AddTLERecords counts the outcome of one batch decode.
func AddTLERecords(decoded, skipped int) {
	tleRecordsTotal.WithLabelValues("decoded").Add(float64(decoded))
	tleRecordsTotal.WithLabelValues("skipped").Add(float64(skipped))
}

func SetTLEDatasetCount(n int) { tleDatasetCount.Set(float64(n)) }
func SetTLEDatasetAge(seconds float64) { tleDatasetAge.Set(seconds) }

func IncLiveFetchErrors(reason string) { liveFetchErrorsTotal.WithLabelValues(reason).Inc() }

func IncRateLimited() { rateLimitedTotal.Inc() }

// knownRoutes are exported as their own path label; everything else collapses.
var knownRoutes = map[string]bool{
	"/":               true,
	"/healthz":        true,
	"/readyz":         true,
	"/metrics":        true,
	"/api/tle":        true,
	"/api/tle/live":   true,
	"/run-simulation": true,
}

const resultsPrefix = "/static/results/"

// normalizeRoute bounds label cardinality: artifact downloads share one label
// and unknown paths become "other".
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, resultsPrefix) && len(path) > len(resultsPrefix) {
		return resultsPrefix + "{file}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := normalizeRoute(r.URL.Path)
		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rw.statusCode)).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
