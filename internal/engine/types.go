package engine

import "github.com/datallboy/gohls/internal/domain"

// Job is one coordinator invocation.
type Job struct {
	Segments    []domain.SegmentEntry
	BaseURL     string
	OutDir      string
	Concurrency int

	// OnProgress is called after every segment decision, in decision order.
	// It runs while the tally is locked and must not block.
	OnProgress func(domain.ProgressEvent)
}

// workItem is a resolved segment, or the reason it could not be resolved.
type workItem struct {
	segment    domain.ResolvedSegment
	resolveErr error
}
