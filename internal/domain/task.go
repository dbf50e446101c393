package domain

import "path/filepath"

// SegmentEntry is one segment reference as it appeared in the playlist.
type SegmentEntry struct {
	RawReference  string `json:"raw_reference"`
	SequenceIndex int    `json:"sequence_index"`
}

// ResolvedSegment is a SegmentEntry mapped to a fetchable URL and a target file.
type ResolvedSegment struct {
	Entry         SegmentEntry
	AbsoluteURL   string
	LocalFileName string
	LocalPath     string
}

func NewResolvedSegment(entry SegmentEntry, absoluteURL, fileName, outDir string) ResolvedSegment {
	return ResolvedSegment{
		Entry:         entry,
		AbsoluteURL:   absoluteURL,
		LocalFileName: fileName,
		LocalPath:     filepath.Join(outDir, fileName),
	}
}
