package engine

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/datallboy/gohls/internal/domain"
)

// ResolveSegment maps a playlist entry to its absolute URL and local path.
// References with a scheme are used as-is; anything else is resolved against base.
func ResolveSegment(entry domain.SegmentEntry, base *url.URL, outDir string) (domain.ResolvedSegment, error) {
	ref, err := url.Parse(entry.RawReference)
	if err != nil {
		return domain.ResolvedSegment{}, fmt.Errorf("invalid segment reference %q: %w", entry.RawReference, err)
	}

	absolute := ref
	if !ref.IsAbs() {
		if base == nil {
			return domain.ResolvedSegment{}, fmt.Errorf("cannot resolve relative reference %q without a base url", entry.RawReference)
		}
		absolute = base.ResolveReference(ref)
	}

	name := LocalFileName(entry)
	return domain.NewResolvedSegment(entry, absolute.String(), name, outDir), nil
}

// LocalFileName is the final path component of the reference, query and fragment excluded.
func LocalFileName(entry domain.SegmentEntry) string {
	p := entry.RawReference
	if u, err := url.Parse(p); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	name := path.Base(p)
	if name == "." || name == "/" || name == "" {
		return fmt.Sprintf("segment_%05d.ts", entry.SequenceIndex)
	}
	return name
}

// resolveAll resolves every entry; failures are kept per item so they become Failed outcomes.
// The returned map lists file names claimed by more than one segment.
func resolveAll(segments []domain.SegmentEntry, baseURL, outDir string) ([]workItem, map[string]int) {
	base, err := url.Parse(baseURL)
	if err != nil || baseURL == "" {
		base = nil
	}

	items := make([]workItem, len(segments))
	seen := make(map[string]int, len(segments))
	collisions := make(map[string]int)

	for i, entry := range segments {
		seg, err := ResolveSegment(entry, base, outDir)
		items[i] = workItem{segment: seg, resolveErr: err}
		if err != nil {
			items[i].segment.Entry = entry
			items[i].segment.LocalFileName = LocalFileName(entry)
			continue
		}

		seen[seg.LocalFileName]++
		if seen[seg.LocalFileName] > 1 {
			collisions[seg.LocalFileName] = seen[seg.LocalFileName]
		}
	}

	return items, collisions
}
