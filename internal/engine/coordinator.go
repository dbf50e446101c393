package engine

import (
	"context"
	"sync"
	"time"

	"github.com/datallboy/gohls/internal/app"
	"github.com/datallboy/gohls/internal/domain"
	"github.com/datallboy/gohls/internal/infra/logger"
	"github.com/datallboy/gohls/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Coordinator drives the bounded worker pool over one playlist's segments.
type Coordinator struct {
	fetcher app.SegmentFetcher
	prober  app.ResumeProber
	logger  *logger.Logger
}

func NewCoordinator(fetcher app.SegmentFetcher, prober app.ResumeProber, log *logger.Logger) *Coordinator {
	return &Coordinator{
		fetcher: fetcher,
		prober:  prober,
		logger:  log,
	}
}

// segmentQueue hands out each index exactly once, in FIFO order.
type segmentQueue struct {
	mu      sync.Mutex
	pending []int
}

func newSegmentQueue(n int) *segmentQueue {
	pending := make([]int, n)
	for i := range pending {
		pending[i] = i
	}
	return &segmentQueue{pending: pending}
}

func (q *segmentQueue) next() (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return 0, false
	}
	idx := q.pending[0]
	q.pending = q.pending[1:]
	return idx, true
}

// tally is the run summary plus the lock that serializes workers' updates.
type tally struct {
	mu         sync.Mutex
	summary    domain.RunSummary
	onProgress func(domain.ProgressEvent)
}

func (t *tally) record(filename string, o domain.DownloadOutcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.summary.Record(filename, o)

	if t.onProgress == nil {
		return
	}

	decided := t.summary.Decided()
	t.onProgress(domain.ProgressEvent{
		Decided:  decided,
		Total:    t.summary.Total,
		Percent:  float64(decided) / float64(t.summary.Total) * 100,
		Filename: filename,
		Outcome:  o.Kind,
		Reason:   o.Reason,
		Bytes:    o.Bytes,
	})
}

// Download fetches every segment of job and returns once each has exactly one outcome.
// Segment failures are recorded in the summary and never returned.
func (c *Coordinator) Download(ctx context.Context, job Job) domain.RunSummary {
	items, collisions := resolveAll(job.Segments, job.BaseURL, job.OutDir)
	for name, count := range collisions {
		c.logger.Warn("%d segments share the file name %s; the last one written wins", count, name)
	}

	t := &tally{
		summary:    domain.RunSummary{Total: len(items), Failures: make([]domain.FailureEntry, 0)},
		onProgress: job.OnProgress,
	}
	if len(items) == 0 {
		return t.summary
	}

	workerCount := job.Concurrency
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > len(items) {
		workerCount = len(items)
	}

	c.logger.Info("Downloading %d segments with %d workers into %s", len(items), workerCount, job.OutDir)

	queue := newSegmentQueue(len(items))

	// Segment failures stay in the tally; a worker only reports cancellation
	var g errgroup.Group
	for w := 0; w < workerCount; w++ {
		g.Go(func() error {
			return c.worker(ctx, queue, items, t)
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.Warn("Download into %s interrupted: %v", job.OutDir, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.summary
}

// worker claims queued indices until the queue is empty. It returns ctx.Err()
// so a cancelled run is visible once every index has been drained.
func (c *Coordinator) worker(ctx context.Context, queue *segmentQueue, items []workItem, t *tally) error {
	for {
		idx, ok := queue.next()
		if !ok {
			return ctx.Err()
		}

		item := items[idx]
		outcome := c.processSegment(ctx, item)
		t.record(item.segment.LocalFileName, outcome)

		metrics.SegmentsTotal.WithLabelValues(string(outcome.Kind)).Inc()
		if outcome.Kind == domain.OutcomeFailed {
			c.logger.Error("[FAIL] Segment %s: %s", item.segment.LocalFileName, outcome.Reason)
		} else {
			c.logger.Debug("Segment %s: %s", item.segment.LocalFileName, outcome.Kind)
		}
	}
}

// processSegment makes the skip / download / fail decision for one segment
func (c *Coordinator) processSegment(ctx context.Context, item workItem) domain.DownloadOutcome {
	// Drain remaining work as failures once cancelled so the tally stays complete
	if err := ctx.Err(); err != nil {
		return domain.DownloadOutcome{Kind: domain.OutcomeFailed, Reason: err.Error()}
	}

	if item.resolveErr != nil {
		return domain.DownloadOutcome{Kind: domain.OutcomeFailed, Reason: item.resolveErr.Error()}
	}

	seg := item.segment
	if c.prober.Exists(seg.LocalPath) {
		return domain.DownloadOutcome{Kind: domain.OutcomeSkipped}
	}

	metrics.SegmentsInFlight.Inc()
	start := time.Now()
	n, err := c.fetcher.FetchToFile(ctx, seg.AbsoluteURL, seg.LocalPath)
	metrics.SegmentFetchDuration.Observe(time.Since(start).Seconds())
	metrics.SegmentsInFlight.Dec()

	if err != nil {
		return domain.DownloadOutcome{Kind: domain.OutcomeFailed, Reason: err.Error()}
	}

	metrics.SegmentBytesTotal.Add(float64(n))
	return domain.DownloadOutcome{Kind: domain.OutcomeDownloaded, Bytes: n}
}
