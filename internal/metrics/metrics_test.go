package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"SegmentsTotal", SegmentsTotal},
		{"SegmentBytesTotal", SegmentBytesTotal},
		{"SegmentsInFlight", SegmentsInFlight},
		{"SegmentFetchDuration", SegmentFetchDuration},
		{"PlaylistFetchTotal", PlaylistFetchTotal},
		{"RunsTotal", RunsTotal},
		{"RunsActive", RunsActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestSegmentsTotalLabels(t *testing.T) {
	before := testutil.ToFloat64(SegmentsTotal.WithLabelValues("skipped"))
	SegmentsTotal.WithLabelValues("skipped").Inc()
	after := testutil.ToFloat64(SegmentsTotal.WithLabelValues("skipped"))

	if after-before != 1 {
		t.Errorf("expected counter to grow by 1, got %v", after-before)
	}
}
