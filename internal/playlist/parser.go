// Package playlist extracts media segment references from M3U8 playlist text.
package playlist

import (
	"strings"

	"github.com/datallboy/gohls/internal/domain"
)

const extinfTag = "#EXTINF:"

// ParseSegments returns the segment references in playlist order.
// A reference is the line right after an #EXTINF: tag, unless that line is
// itself a directive. Duplicates are kept. No tags yields an empty slice.
func ParseSegments(data string) []domain.SegmentEntry {
	lines := nonBlankLines(data)
	segments := make([]domain.SegmentEntry, 0)

	for i, line := range lines {
		if !strings.HasPrefix(line, extinfTag) || i+1 >= len(lines) {
			continue
		}

		next := lines[i+1]
		if strings.HasPrefix(next, "#") {
			continue
		}

		segments = append(segments, domain.SegmentEntry{
			RawReference:  next,
			SequenceIndex: len(segments),
		})
	}

	return segments
}

// References is a convenience returning only the raw reference strings.
func References(segments []domain.SegmentEntry) []string {
	refs := make([]string, len(segments))
	for i, s := range segments {
		refs[i] = s.RawReference
	}
	return refs
}

func nonBlankLines(data string) []string {
	raw := strings.Split(data, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}
