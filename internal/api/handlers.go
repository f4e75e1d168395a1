package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/star/orbitviz/internal/metrics"
	"github.com/star/orbitviz/internal/sim"
	"github.com/star/orbitviz/internal/tle"
)

const (
	maxRequestBytes = 2 << 20
	retryAfter      = "10"
	resultsURL      = "/static/results/"
)

var resultName = regexp.MustCompile(`^[0-9a-f]{32}\.(gif|mp4)$`)

type runResponse struct {
	Status     string `json:"status"`
	File       string `json:"file,omitempty"`
	ID         string `json:"id,omitempty"`
	Satellites int    `json:"satellites,omitempty"`
	Skipped    int    `json:"skipped,omitempty"`
	Message    string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeRunError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, runResponse{Status: string(sim.StatusError), Message: msg})
}

func writeText(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// tleHandler serves the default dataset as plain text.
func tleHandler(store *tle.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds := store.Get()
		if ds == nil {
			http.Error(w, "TLE file not found.", http.StatusNotFound)
			return
		}
		w.Header().Set("X-Orbitviz-Source", ds.Source)
		writeText(w, ds.Raw)
	}
}

// liveTLEHandler proxies a catalog group, optionally trimmed to the first n
// sets. Successful downloads are cached; when the catalog fails the newest
// cached copy of the group is served and marked stale.
func liveTLEHandler(logger *slog.Logger, fetcher GroupFetcher, cache *tle.Cache, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if fetcher == nil || !opts.LiveEnabled {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "live TLE proxy disabled"})
			return
		}

		q := r.URL.Query()
		if format := q.Get("format"); format != "" && !strings.EqualFold(format, "tle") {
			http.Error(w, "Unsupported format", http.StatusBadRequest)
			return
		}
		group := q.Get("group")
		if group == "" {
			group = opts.DefaultGroup
		}
		if err := tle.ValidateGroup(group); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		// An unparseable n is ignored and the full group returned.
		n, _ := strconv.Atoi(q.Get("n"))

		body, err := fetcher.FetchGroup(r.Context(), group)
		if err == nil {
			if cache != nil {
				if cerr := cache.Write(group, body, time.Now()); cerr != nil {
					logger.Warn("failed to cache live TLE group", "group", group, "error", cerr)
				}
			}
			writeText(w, tle.Trim(body, n))
			return
		}

		reason, msg := "upstream", "Failed to fetch from CelesTrak"
		if errors.Is(err, tle.ErrInvalidResponse) {
			reason, msg = "invalid_response", "Empty or invalid response from CelesTrak"
		}
		metrics.IncLiveFetchErrors(reason)
		logger.Warn("live TLE fetch failed", "group", group, "error", err)

		if cache != nil {
			if data, ts, cerr := cache.LoadLatest(group); cerr == nil {
				w.Header().Set("X-Orbitviz-Cache", "stale")
				w.Header().Set("X-Orbitviz-Cached-At", ts.UTC().Format(time.RFC3339))
				writeText(w, tle.Trim(data, n))
				return
			}
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": msg, "details": err.Error()})
	}
}

// runHandler executes one simulation per request and answers with the
// public URL of the artifact.
func runHandler(logger *slog.Logger, runner Runner, limiter *runLimiter, ips ipPolicy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, key := ips.clientIP(r), ips.limitKey(r)
		if !limiter.acquire(key) {
			metrics.IncRateLimited()
			logger.Warn("simulation rate limited", "remote_ip", ip, "limit_key", key, "active", limiter.count(key))
			w.Header().Set("Retry-After", retryAfter)
			writeRunError(w, http.StatusTooManyRequests, "too many concurrent simulations")
			return
		}
		defer limiter.release(key)

		req, err := decodeRequest(r)
		if err != nil {
			writeRunError(w, http.StatusBadRequest, err.Error())
			return
		}

		run, err := runner.Submit(r.Context(), req)
		if err != nil {
			status := runErrorStatus(err)
			if status >= http.StatusInternalServerError {
				logger.Error("simulation failed", "remote_ip", ip, "error", err)
			}
			writeRunError(w, status, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, runResponse{
			Status:     string(sim.StatusSuccess),
			File:       resultsURL + run.File,
			ID:         run.ID,
			Satellites: run.Satellites,
			Skipped:    run.Skipped,
		})
	}
}

// decodeRequest reads the JSON body. An empty body selects every default.
func decodeRequest(r *http.Request) (sim.Request, error) {
	var req sim.Request
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil {
		return req, fmt.Errorf("reading request body: %w", err)
	}
	if len(body) > maxRequestBytes {
		return req, fmt.Errorf("request body exceeds %d bytes", maxRequestBytes)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("invalid JSON body: %w", err)
	}
	return req, nil
}

func runErrorStatus(err error) int {
	var ce *sim.ConfigurationError
	switch {
	case errors.As(err, &ce):
		return http.StatusBadRequest
	case errors.Is(err, sim.ErrRunnerClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// resultHandler serves finished artifacts by their generated name only.
func resultHandler(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("file")
		if !resultName.MatchString(name) {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
		http.ServeFile(w, r, filepath.Join(dir, name))
	}
}

// indexHandler serves index.html for / and any unknown path.
func indexHandler(web fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if web == nil {
			http.NotFound(w, r)
			return
		}
		page, err := fs.ReadFile(web, "index.html")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(page)
	}
}
