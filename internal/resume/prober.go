// Package resume decides whether a segment already on disk can be skipped.
package resume

import "os"

// Prober checks segment target paths before any network access.
type Prober struct {
	stat func(string) (os.FileInfo, error)
}

func NewProber() *Prober {
	return &Prober{stat: os.Stat}
}

// Exists reports whether path is a regular file with content.
// Zero-length files and any stat error count as absent so the segment is fetched again.
func (p *Prober) Exists(path string) bool {
	info, err := p.stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}
