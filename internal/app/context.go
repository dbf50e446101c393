package app

import (
	"context"

	"github.com/datallboy/gohls/internal/domain"
	"github.com/datallboy/gohls/internal/infra/config"
	"github.com/datallboy/gohls/internal/infra/logger"
)

// PlaylistFetcher returns the raw text of a playlist URL.
type PlaylistFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// SegmentFetcher streams one segment to a destination path.
type SegmentFetcher interface {
	FetchToFile(ctx context.Context, url, destPath string) (int64, error)
}

// Fetcher is what the fetch package's Client provides to the engine.
type Fetcher interface {
	PlaylistFetcher
	SegmentFetcher
}

// ResumeProber reports whether a segment target already holds content.
type ResumeProber interface {
	Exists(path string) bool
}

// Downloader runs one playlist end to end.
type Downloader interface {
	Run(ctx context.Context, playlistURL, outDir string, onProgress func(domain.ProgressEvent)) (domain.RunSummary, error)
}

// Store persists run history. A nil Store disables persistence.
type Store interface {
	SaveRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*domain.Run, error)
	Close() error
}

// Context holds the core environment and shared resources for gohls.
type Context struct {
	Config *config.Config
	Logger *logger.Logger

	Fetcher    Fetcher
	Prober     ResumeProber
	Downloader Downloader
	Store      Store
}

// NewContext initializes the base environment.
func NewContext(cfg *config.Config, log *logger.Logger) *Context {
	return &Context{
		Config: cfg,
		Logger: log,
	}
}
