package domain

import (
	"context"
	"sync"
	"time"
)

type JobStatus string

const (
	StatusPending     JobStatus = "pending"
	StatusDownloading JobStatus = "downloading"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
)

// IsFinished reports whether the run reached a terminal status.
func (s JobStatus) IsFinished() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Run represents one playlist download submitted to the run manager.
// Identity fields are immutable; everything else goes through the accessors.
type Run struct {
	ID          string
	PlaylistURL string
	OutDir      string
	CreatedAt   time.Time

	mu         sync.RWMutex
	status     JobStatus
	err        string
	finishedAt *time.Time
	summary    RunSummary

	CancelFunc context.CancelFunc
}

// RunSnapshot is a consistent, copyable view of a Run.
type RunSnapshot struct {
	ID          string     `json:"id"`
	PlaylistURL string     `json:"playlist_url"`
	OutDir      string     `json:"out_dir"`
	Status      JobStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Summary     RunSummary `json:"summary"`
}

func NewRun(id, playlistURL, outDir string, createdAt time.Time) *Run {
	return &Run{
		ID:          id,
		PlaylistURL: playlistURL,
		OutDir:      outDir,
		CreatedAt:   createdAt,
		status:      StatusPending,
		summary:     RunSummary{Failures: make([]FailureEntry, 0)},
	}
}

// RestoreRun rebuilds a Run from stored state.
func RestoreRun(s RunSnapshot) *Run {
	r := NewRun(s.ID, s.PlaylistURL, s.OutDir, s.CreatedAt)
	r.status = s.Status
	r.err = s.Error
	r.finishedAt = s.FinishedAt
	r.summary = s.Summary
	if r.summary.Failures == nil {
		r.summary.Failures = make([]FailureEntry, 0)
	}
	return r
}

func (r *Run) Status() JobStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

func (r *Run) SetStatus(s JobStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = s
}

// Finish moves the run to a terminal status.
func (r *Run) Finish(s JobStatus, errMsg string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = s
	r.err = errMsg
	r.finishedAt = &at
}

// SetSummary replaces the tally, used for live progress.
func (r *Run) SetSummary(s RunSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary = s
}

func (r *Run) Snapshot() RunSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := RunSnapshot{
		ID:          r.ID,
		PlaylistURL: r.PlaylistURL,
		OutDir:      r.OutDir,
		Status:      r.status,
		Error:       r.err,
		CreatedAt:   r.CreatedAt,
		Summary:     r.summary,
	}
	if r.finishedAt != nil {
		t := *r.finishedAt
		s.FinishedAt = &t
	}
	s.Summary.Failures = append(make([]FailureEntry, 0, len(r.summary.Failures)), r.summary.Failures...)
	return s
}
