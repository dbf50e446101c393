package resume

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestProberExists(t *testing.T) {
	dir := t.TempDir()

	full := filepath.Join(dir, "full.ts")
	if err := os.WriteFile(full, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.ts")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	subdir := filepath.Join(dir, "sub.ts")
	if err := os.Mkdir(subdir, 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"file with content", full, true},
		{"zero byte file", empty, false},
		{"missing file", filepath.Join(dir, "missing.ts"), false},
		{"directory", subdir, false},
	}

	p := NewProber()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Exists(tt.path); got != tt.want {
				t.Errorf("Exists(%s) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestProberStatErrorFailsOpen(t *testing.T) {
	p := &Prober{stat: func(string) (os.FileInfo, error) {
		return nil, errors.New("permission denied")
	}}

	if p.Exists("/anything") {
		t.Error("expected stat error to be treated as absent")
	}
}
