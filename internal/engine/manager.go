package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/datallboy/gohls/internal/app"
	"github.com/datallboy/gohls/internal/domain"
	"github.com/datallboy/gohls/internal/infra/logger"
	"github.com/datallboy/gohls/internal/metrics"
	"github.com/segmentio/ksuid"
)

// maxHistory bounds the finished runs kept in memory when no store is configured.
const maxHistory = 100

// RunManager processes submitted runs one at a time, in submission order.
type RunManager struct {
	mu         sync.RWMutex
	downloader app.Downloader
	store      app.Store
	logger     *logger.Logger
	queue      []*domain.Run
	history    []*domain.Run
	activeRun  *domain.Run

	newJobChan chan struct{}
}

// NewRunManager initializes a RunManager.
// If loadExisting is true, unfinished runs from the store are queued again;
// resume skips the segments they already wrote.
func NewRunManager(app *app.Context, loadExisting bool) *RunManager {
	m := &RunManager{
		downloader: app.Downloader,
		store:      app.Store,
		logger:     app.Logger,
		queue:      make([]*domain.Run, 0),
		newJobChan: make(chan struct{}, 1),
	}

	if loadExisting && m.store != nil {
		runs, err := m.store.ListRuns(context.Background(), 0)
		if err != nil {
			m.logger.Warn("Could not load pending runs: %v", err)
			return m
		}
		// ListRuns is newest first; the queue is oldest first
		for i := len(runs) - 1; i >= 0; i-- {
			if !runs[i].Status().IsFinished() {
				runs[i].SetStatus(domain.StatusPending)
				m.queue = append(m.queue, runs[i])
			}
		}
		if len(m.queue) > 0 {
			m.logger.Info("Re-queued %d unfinished runs", len(m.queue))
		}
	}

	return m
}

// Add creates a new pending run and notifies the Start loop
func (m *RunManager) Add(ctx context.Context, playlistURL, outDir string) (*domain.Run, error) {
	if playlistURL == "" {
		return nil, errors.New("playlist url is required")
	}
	if outDir == "" {
		return nil, errors.New("output directory is required")
	}

	run := domain.NewRun(ksuid.New().String(), playlistURL, outDir, time.Now().UTC())

	if m.store != nil {
		if err := m.store.SaveRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to save run to database: %w", err)
		}
	}

	m.mu.Lock()
	m.queue = append(m.queue, run)
	m.mu.Unlock()

	m.signal()
	return run, nil
}

func (m *RunManager) signal() {
	select {
	case m.newJobChan <- struct{}{}:
	default:
		// Signal already pending, no need to block
	}
}

// Start runs queued downloads until ctx is cancelled.
func (m *RunManager) Start(ctx context.Context) {
	for {
		next := m.nextPending()

		if next == nil {
			select {
			case <-m.newJobChan:
				continue
			case <-ctx.Done():
				return
			}
		}

		m.mu.Lock()
		// Cancel may have retired it since nextPending released the lock
		if next.Status() != domain.StatusPending {
			m.mu.Unlock()
			continue
		}
		m.activeRun = next
		jobCtx, cancel := context.WithCancel(ctx)
		next.CancelFunc = cancel
		m.mu.Unlock()

		m.updateStatus(jobCtx, next, domain.StatusDownloading)
		metrics.RunsActive.Set(1)

		summary, err := m.execute(jobCtx, next)

		metrics.RunsActive.Set(0)
		m.finalizeRun(ctx, next, summary, err)
		cancel()

		if ctx.Err() != nil {
			return
		}
	}
}

func (m *RunManager) nextPending() *domain.Run {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, run := range m.queue {
		if run.Status() == domain.StatusPending {
			return run
		}
	}
	return nil
}

func (m *RunManager) execute(ctx context.Context, run *domain.Run) (domain.RunSummary, error) {
	// Output directory creation belongs to the caller of the downloader
	if err := os.MkdirAll(run.OutDir, 0755); err != nil {
		return domain.RunSummary{}, fmt.Errorf("failed to create out_dir: %w", err)
	}

	// Events arrive serialized by the coordinator
	live := domain.RunSummary{Failures: make([]domain.FailureEntry, 0)}
	summary, err := m.downloader.Run(ctx, run.PlaylistURL, run.OutDir, func(ev domain.ProgressEvent) {
		live.Total = ev.Total
		live.Record(ev.Filename, domain.DownloadOutcome{Kind: ev.Outcome, Reason: ev.Reason, Bytes: ev.Bytes})
		run.SetSummary(live)
	})
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return summary, err
}

// GetActiveRun allows the API to see what's currently running
func (m *RunManager) GetActiveRun() *domain.Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeRun
}

// Get searches the live queue first, then the store (or in-memory history).
func (m *RunManager) Get(ctx context.Context, id string) (*domain.Run, bool) {
	m.mu.RLock()
	for _, run := range m.queue {
		if run.ID == id {
			m.mu.RUnlock()
			return run, true
		}
	}
	for _, run := range m.history {
		if run.ID == id {
			m.mu.RUnlock()
			return run, true
		}
	}
	m.mu.RUnlock()

	if m.store == nil {
		return nil, false
	}

	run, err := m.store.GetRun(ctx, id)
	if err == nil && run != nil {
		return run, true
	}
	return nil, false
}

// List returns the stored history when a store is configured, otherwise the
// live queue followed by the in-memory history.
func (m *RunManager) List(ctx context.Context, limit int) ([]*domain.Run, error) {
	if m.store != nil {
		return m.store.ListRuns(ctx, limit)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to prevent the caller from modifying the internal slices
	runs := make([]*domain.Run, 0, len(m.queue)+len(m.history))
	runs = append(runs, m.queue...)
	for i := len(m.history) - 1; i >= 0; i-- {
		runs = append(runs, m.history[i])
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Cancel stops a pending or active run. It returns false when the run is unknown or finished.
func (m *RunManager) Cancel(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, run := range m.queue {
		if run.ID != id {
			continue
		}

		if run.Status().IsFinished() {
			return false
		}

		if run.CancelFunc != nil {
			run.CancelFunc()
			return true
		}

		// Not started yet: finish it here so the Start loop never picks it up
		run.Finish(domain.StatusFailed, "Cancelled by user", time.Now().UTC())
		if m.store != nil {
			_ = m.store.SaveRun(context.Background(), run)
		}
		m.retire(run)
		return true
	}
	return false
}

// updateStatus changes the status and saves to DB immediately
func (m *RunManager) updateStatus(ctx context.Context, run *domain.Run, status domain.JobStatus) {
	run.SetStatus(status)
	if m.store != nil {
		if err := m.store.SaveRun(ctx, run); err != nil {
			m.logger.Warn("Could not persist status of run %s: %v", run.ID, err)
		}
	}
}

func (m *RunManager) finalizeRun(ctx context.Context, run *domain.Run, summary domain.RunSummary, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if summary.Total > 0 {
		run.SetSummary(summary)
	}

	// A run with failed segments is still a completed run
	status, errMsg := domain.StatusCompleted, ""
	if err != nil {
		status = domain.StatusFailed
		if errors.Is(err, context.Canceled) {
			errMsg = "Cancelled by user"
		} else {
			errMsg = err.Error()
		}
		m.logger.Error("Run %s failed: %s", run.ID, errMsg)
	}
	run.Finish(status, errMsg, time.Now().UTC())
	metrics.RunsTotal.WithLabelValues(string(status)).Inc()

	// Persist the final outcome even if the server is shutting down
	if m.store != nil {
		if serr := m.store.SaveRun(context.WithoutCancel(ctx), run); serr != nil {
			m.logger.Error("Could not persist run %s: %v", run.ID, serr)
		}
	}

	m.activeRun = nil
	m.retire(run)
}

// retire moves a finished run out of the live queue. Callers hold m.mu.
func (m *RunManager) retire(run *domain.Run) {
	for i, r := range m.queue {
		if r.ID == run.ID {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			break
		}
	}

	if m.store != nil {
		return
	}
	m.history = append(m.history, run)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
}
