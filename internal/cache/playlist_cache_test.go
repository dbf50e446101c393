package cache

import (
	"path/filepath"
	"testing"
)

func TestPlaylistCacheRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	c := NewPlaylistCache()

	if c.Exists(dir) {
		t.Fatal("expected no playlist before Put")
	}

	body := "#EXTM3U\n#EXTINF:10.0,\nseg0.ts\n"
	if err := c.Put(dir, []byte(body)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if !c.Exists(dir) {
		t.Fatal("expected playlist after Put")
	}

	got, err := c.Get(dir)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != body {
		t.Errorf("Get() = %q, want %q", got, body)
	}
}
