package domain

// OutcomeKind is the per-segment decision recorded by the coordinator.
type OutcomeKind string

const (
	OutcomeDownloaded OutcomeKind = "downloaded"
	OutcomeSkipped    OutcomeKind = "skipped"
	OutcomeFailed     OutcomeKind = "failed"
)

// DownloadOutcome is produced exactly once per segment per run.
type DownloadOutcome struct {
	Kind   OutcomeKind
	Reason string // set only for OutcomeFailed
	Bytes  int64
}

// FailureEntry names a failed segment and why it failed.
type FailureEntry struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// RunSummary is the aggregate outcome of one download invocation.
type RunSummary struct {
	Total     int            `json:"total"`
	Completed int            `json:"completed"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
	Bytes     int64          `json:"bytes"`
	Failures  []FailureEntry `json:"failures"`
}

// Decided returns how many segments already have an outcome.
func (s RunSummary) Decided() int {
	return s.Completed + s.Skipped + s.Failed
}

// Record applies a single outcome. Callers serialize access.
func (s *RunSummary) Record(filename string, o DownloadOutcome) {
	switch o.Kind {
	case OutcomeDownloaded:
		s.Completed++
		s.Bytes += o.Bytes
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
		s.Failures = append(s.Failures, FailureEntry{Filename: filename, Reason: o.Reason})
	}
}

// ProgressEvent is advisory telemetry emitted after every segment decision.
type ProgressEvent struct {
	Decided  int         `json:"decided"`
	Total    int         `json:"total"`
	Percent  float64     `json:"percent"`
	Filename string      `json:"filename"`
	Outcome  OutcomeKind `json:"outcome"`
	Reason   string      `json:"reason,omitempty"`
	Bytes    int64       `json:"bytes"`
}
