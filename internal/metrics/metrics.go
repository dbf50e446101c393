package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Segment metrics
var (
	SegmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gohls_segments_total",
			Help: "Total number of segment decisions by outcome",
		},
		[]string{"outcome"}, // "downloaded", "skipped", "failed"
	)

	SegmentBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gohls_segment_bytes_total",
			Help: "Total number of segment bytes written to disk",
		},
	)

	SegmentsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gohls_segments_in_flight",
			Help: "Number of segment fetches currently in progress",
		},
	)

	SegmentFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gohls_segment_fetch_duration_seconds",
			Help:    "Segment fetch duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

// Playlist and run metrics
var (
	PlaylistFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gohls_playlist_fetch_total",
			Help: "Total number of playlist fetches by status",
		},
		[]string{"status"}, // "success", "error", "empty"
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gohls_runs_total",
			Help: "Total number of finished runs by status",
		},
		[]string{"status"},
	)

	RunsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gohls_runs_active",
			Help: "Whether a run is currently downloading (1 = running, 0 = idle)",
		},
	)
)
