package web

import (
	"io/fs"
	"strings"
	"testing"
)

func TestContent(t *testing.T) {
	page, err := fs.ReadFile(Content, "index.html")
	if err != nil || !strings.Contains(string(page), "/run-simulation") {
		t.Errorf("index.html: %v", err)
	}
	data, err := fs.ReadFile(Content, DefaultTLE)
	if err != nil {
		t.Fatalf("tle.txt: %v", err)
	}
	if !strings.HasPrefix(string(data), "LILACSAT-2\n1 40908U") {
		t.Errorf("unexpected default dataset: %.40q", data)
	}
}
