package tle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultSourceURL is the CelesTrak GP endpoint queried by group name.
	DefaultSourceURL = "https://celestrak.org/NORAD/elements/gp.php"

	// DefaultGroup is the group served when a request names none.
	DefaultGroup = "active"

	maxBodyBytes = 50 << 20
	minBodyBytes = 100
	userAgent    = "orbitviz/1.0"
)

// ErrInvalidResponse is returned when the upstream answers with an empty or
// truncated TLE body.
var ErrInvalidResponse = errors.New("empty or invalid TLE response")

// Fetcher retrieves live TLE groups from a remote catalog.
type Fetcher struct {
	sourceURL  string
	extraURLs  []string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher for the given catalog endpoint. Extra URLs are
// fetched after every group and appended to its body; their failures are
// logged and ignored.
func NewFetcher(sourceURL string, logger *slog.Logger, extraURLs ...string) *Fetcher {
	if sourceURL == "" {
		sourceURL = DefaultSourceURL
	}
	return &Fetcher{
		sourceURL: sourceURL,
		extraURLs: extraURLs,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// SourceURL returns the configured catalog endpoint.
func (f *Fetcher) SourceURL() string {
	return f.sourceURL
}

// GroupURL returns the request URL for a named group in TLE format.
func (f *Fetcher) GroupURL(group string) (string, error) {
	u, err := url.Parse(f.sourceURL)
	if err != nil {
		return "", fmt.Errorf("parsing source URL: %w", err)
	}
	q := u.Query()
	q.Set("GROUP", group)
	q.Set("FORMAT", "TLE")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FetchGroup downloads the named group.
func (f *Fetcher) FetchGroup(ctx context.Context, group string) ([]byte, error) {
	if group == "" {
		group = DefaultGroup
	}
	groupURL, err := f.GroupURL(group)
	if err != nil {
		return nil, err
	}

	body, err := f.fetch(ctx, groupURL)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) < minBodyBytes {
		return nil, fmt.Errorf("group %q: %w", group, ErrInvalidResponse)
	}

	for _, extra := range f.extraURLs {
		data, err := f.fetch(ctx, extra)
		if err != nil {
			f.logger.Warn("extra TLE source failed", "url", extra, "error", err)
			continue
		}
		if len(body) > 0 && body[len(body)-1] != '\n' {
			body = append(body, '\n')
		}
		body = append(body, data...)
	}
	return body, nil
}

func (f *Fetcher) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching TLE data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, target)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("response from %s exceeds %d byte limit", target, maxBodyBytes)
	}
	return body, nil
}
