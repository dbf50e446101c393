package engine

import (
	"context"
	"fmt"

	"github.com/datallboy/gohls/internal/app"
	"github.com/datallboy/gohls/internal/cache"
	"github.com/datallboy/gohls/internal/domain"
	"github.com/datallboy/gohls/internal/metrics"
	"github.com/datallboy/gohls/internal/playlist"
)

// Downloader is the concrete implementation of the download pipeline:
// fetch playlist, parse, then hand the segments to the coordinator.
type Downloader struct {
	ctx         *app.Context
	coordinator *Coordinator
	cache       *cache.PlaylistCache
}

func NewDownloader(ctx *app.Context, coordinator *Coordinator) *Downloader {
	return &Downloader{
		ctx:         ctx,
		coordinator: coordinator,
		cache:       cache.NewPlaylistCache(),
	}
}

// Run downloads playlistURL into outDir, which the caller must have created.
// Playlist level failures abort before any segment is attempted and are returned;
// segment failures only show up in the summary.
func (s *Downloader) Run(ctx context.Context, playlistURL, outDir string, onProgress func(domain.ProgressEvent)) (domain.RunSummary, error) {
	s.ctx.Logger.Info("Fetching playlist %s", playlistURL)

	text, err := s.ctx.Fetcher.FetchText(ctx, playlistURL)
	if err != nil {
		metrics.PlaylistFetchTotal.WithLabelValues("error").Inc()
		return domain.RunSummary{}, fmt.Errorf("failed to fetch playlist: %w", err)
	}

	if s.ctx.Config.Download.SavePlaylist {
		if err := s.cache.Put(outDir, []byte(text)); err != nil {
			s.ctx.Logger.Warn("Could not save playlist to %s: %v", outDir, err)
		} else {
			s.ctx.Logger.Debug("Saved playlist to %s", outDir)
		}
	}

	segments := playlist.ParseSegments(text)
	if len(segments) == 0 {
		metrics.PlaylistFetchTotal.WithLabelValues("empty").Inc()
		return domain.RunSummary{}, &domain.EmptyPlaylistError{URL: playlistURL}
	}
	metrics.PlaylistFetchTotal.WithLabelValues("success").Inc()

	summary := s.coordinator.Download(ctx, Job{
		Segments:    segments,
		BaseURL:     playlistURL,
		OutDir:      outDir,
		Concurrency: s.ctx.Config.Download.Concurrency,
		OnProgress:  onProgress,
	})

	s.ctx.Logger.Info("Finished %s: %d downloaded, %d skipped, %d failed of %d",
		playlistURL, summary.Completed, summary.Skipped, summary.Failed, summary.Total)

	return summary, nil
}
