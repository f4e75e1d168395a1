package tle

import (
	"os"
	"testing"
	"time"
)

func TestCacheWriteLoadPrune(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, 2)
	base := time.Unix(1_700_000_000, 0)

	for i := 0; i < 4; i++ {
		if err := c.Write("active", []byte{byte('a' + i)}, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}
	if err := c.Write("weather", []byte("w"), base); err != nil {
		t.Fatalf("Write weather: %v", err)
	}

	data, ts, err := c.LoadLatest("active")
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if string(data) != "d" || !ts.Equal(base.Add(3*time.Minute)) {
		t.Errorf("latest = %q at %v", data, ts)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d files after pruning, want 3 (2 active + 1 weather)", len(entries))
	}
}

func TestCacheRejectsGroupNames(t *testing.T) {
	c := NewCache(t.TempDir(), 2)
	for _, g := range []string{"", "../etc", "a b"} {
		if err := c.Write(g, []byte("x"), time.Now()); err == nil {
			t.Errorf("Write(%q) should fail", g)
		}
	}
	if _, _, err := c.LoadLatest("missing"); err == nil {
		t.Error("LoadLatest on empty cache should fail")
	}
}
