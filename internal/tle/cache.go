package tle

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Cache keeps the most recent live downloads of each group on disk so the
// proxy can fall back to them when the upstream catalog is unavailable.
type Cache struct {
	dir      string
	maxFiles int
}

// NewCache creates a Cache that stores files in dir and keeps at most
// maxFiles per group.
func NewCache(dir string, maxFiles int) *Cache {
	if maxFiles <= 0 {
		maxFiles = 5
	}
	return &Cache{
		dir:      dir,
		maxFiles: maxFiles,
	}
}

// Write saves data for group under a timestamped name and prunes that
// group's older files beyond maxFiles.
func (c *Cache) Write(group string, data []byte, ts time.Time) error {
	prefix, err := groupPrefix(group)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	// Write-then-rename so readers never see a partial file.
	path := filepath.Join(c.dir, fmt.Sprintf("%s%d.txt", prefix, ts.Unix()))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming cache file: %w", err)
	}

	return c.prune(prefix)
}

// LoadLatest reads the newest cached file for group.
// Returns the data, the timestamp, and any error.
func (c *Cache) LoadLatest(group string) ([]byte, time.Time, error) {
	prefix, err := groupPrefix(group)
	if err != nil {
		return nil, time.Time{}, err
	}
	files, err := c.listFiles(prefix)
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(files) == 0 {
		return nil, time.Time{}, fmt.Errorf("no cache files found for group %q", group)
	}

	// Files are sorted oldest first.
	latest := files[len(files)-1]
	data, err := os.ReadFile(filepath.Join(c.dir, latest.name))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading cache file: %w", err)
	}
	return data, latest.ts, nil
}

// groupPrefix validates a group name for use in file names.
func groupPrefix(group string) (string, error) {
	if group == "" {
		return "", fmt.Errorf("empty group name")
	}
	for _, r := range group {
		ok := r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			return "", fmt.Errorf("invalid group name %q", group)
		}
	}
	return "tle_" + strings.ToLower(group) + "_", nil
}

type cacheFile struct {
	name string
	ts   time.Time
}

func (c *Cache) listFiles(prefix string) ([]cacheFile, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing cache dir: %w", err)
	}

	var files []cacheFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".txt") {
			continue
		}
		unix, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".txt"), 10, 64)
		if err != nil {
			continue
		}
		files = append(files, cacheFile{name: name, ts: time.Unix(unix, 0)})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ts.Before(files[j].ts)
	})
	return files, nil
}

func (c *Cache) prune(prefix string) error {
	files, err := c.listFiles(prefix)
	if err != nil {
		return err
	}
	if len(files) <= c.maxFiles {
		return nil
	}

	for _, f := range files[:len(files)-c.maxFiles] {
		if err := os.Remove(filepath.Join(c.dir, f.name)); err != nil {
			return fmt.Errorf("pruning cache file %s: %w", f.name, err)
		}
	}
	return nil
}

// ValidateGroup reports whether group is usable as a catalog group name.
func ValidateGroup(group string) error {
	_, err := groupPrefix(group)
	return err
}
