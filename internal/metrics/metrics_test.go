package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/api/tle", "/api/tle"},
		{"/api/tle/live", "/api/tle/live"},
		{"/run-simulation", "/run-simulation"},

		// Artifact downloads collapse to one label.
		{"/static/results/0f3c9a.gif", "/static/results/{file}"},
		{"/static/results/ab12.mp4", "/static/results/{file}"},
		{"/static/results/", "other"},

		// Unknown/bot paths collapse to "other".
		{"/wp-admin", "other"},
		{"/.env", "other"},
		{"/api/tle/other", "other"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := normalizeRoute(tt.path); got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestMiddlewareCapturesStatus(t *testing.T) {
	var seen int
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		seen = w.(*responseWriter).statusCode
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusTeapot || seen != http.StatusTeapot {
		t.Errorf("status = %d (captured %d), want %d", rec.Code, seen, http.StatusTeapot)
	}
}
