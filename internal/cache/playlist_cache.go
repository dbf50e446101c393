package cache

import (
	"os"
	"path/filepath"
)

// PlaylistFileName is the name the raw playlist is saved under inside a run's output dir.
const PlaylistFileName = "playlist.m3u8"

// PlaylistCache persists raw playlist text next to the downloaded segments.
type PlaylistCache struct{}

func NewPlaylistCache() *PlaylistCache {
	return &PlaylistCache{}
}

func (c *PlaylistCache) Get(outDir string) ([]byte, error) {
	return os.ReadFile(filepath.Join(outDir, PlaylistFileName))
}

func (c *PlaylistCache) Put(outDir string, data []byte) error {
	// Ensure the directory exists
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, PlaylistFileName), data, 0644)
}

func (c *PlaylistCache) Exists(outDir string) bool {
	_, err := os.Stat(filepath.Join(outDir, PlaylistFileName))
	return err == nil
}
