package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/datallboy/gohls/internal/api/controllers"
	"github.com/datallboy/gohls/internal/app"
	"github.com/datallboy/gohls/internal/cache"
	"github.com/datallboy/gohls/internal/domain"
	"github.com/datallboy/gohls/internal/infra/config"
	"github.com/datallboy/gohls/internal/infra/logger"
	"github.com/labstack/echo/v5"
)

// fakeRuns is an in-memory RunService.
type fakeRuns struct {
	mu   sync.Mutex
	runs map[string]*domain.Run
	seq  int
}

func newFakeRuns() *fakeRuns {
	return &fakeRuns{runs: make(map[string]*domain.Run)}
}

func (f *fakeRuns) Add(ctx context.Context, playlistURL, outDir string) (*domain.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("run-%d", f.seq)
	run := domain.NewRun(id, playlistURL, outDir, time.Date(2024, 1, 1, 0, 0, f.seq, 0, time.UTC))
	f.runs[id] = run
	return run, nil
}

func (f *fakeRuns) Get(ctx context.Context, id string) (*domain.Run, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	return run, ok
}

func (f *fakeRuns) List(ctx context.Context, limit int) ([]*domain.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	runs := make([]*domain.Run, 0, len(f.runs))
	for _, run := range f.runs {
		runs = append(runs, run)
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (f *fakeRuns) Cancel(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok || run.Status().IsFinished() {
		return false
	}
	run.Finish(domain.StatusFailed, "Cancelled by user", time.Now().UTC())
	return true
}

var _ controllers.RunService = (*fakeRuns)(nil)

func newTestServer(t *testing.T) (*echo.Echo, *fakeRuns, string) {
	t.Helper()
	outDir := t.TempDir()
	cfg := &config.Config{Download: config.DownloadConfig{OutDir: outDir}}
	appCtx := app.NewContext(cfg, logger.Discard())

	runs := newFakeRuns()
	e := echo.New()
	RegisterRoutes(e, appCtx, runs)
	return e, runs, outDir
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateRun(t *testing.T) {
	e, runs, outDir := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantOutDir string
	}{
		{"explicit out dir", `{"url":"https://cdn.example.com/live/index.m3u8","out_dir":"/tmp/show"}`, http.StatusAccepted, "/tmp/show"},
		{"derived out dir", `{"url":"https://cdn.example.com/live/index.m3u8"}`, http.StatusAccepted, filepath.Join(outDir, "cdn-example-com-index")},
		{"relative url", `{"url":"/live/index.m3u8"}`, http.StatusBadRequest, ""},
		{"ftp url", `{"url":"ftp://host/index.m3u8"}`, http.StatusBadRequest, ""},
		{"bad json", `{`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/api/runs", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusAccepted {
				return
			}

			var snap domain.RunSnapshot
			if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
				t.Fatal(err)
			}
			if snap.OutDir != tt.wantOutDir {
				t.Errorf("out_dir = %s, want %s", snap.OutDir, tt.wantOutDir)
			}
			if snap.Status != domain.StatusPending {
				t.Errorf("status = %s", snap.Status)
			}
			if _, ok := runs.Get(context.Background(), snap.ID); !ok {
				t.Error("run was not handed to the service")
			}
		})
	}
}

func TestGetListAndCancelRun(t *testing.T) {
	e, runs, _ := newTestServer(t)
	run, _ := runs.Add(context.Background(), "http://host/a.m3u8", "/tmp/a")
	runs.Add(context.Background(), "http://host/b.m3u8", "/tmp/b")

	rec := do(e, http.MethodGet, "/api/runs/"+run.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	var snap domain.RunSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.PlaylistURL != "http://host/a.m3u8" {
		t.Errorf("playlist_url = %s", snap.PlaylistURL)
	}

	if rec := do(e, http.MethodGet, "/api/runs/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown run status = %d", rec.Code)
	}

	rec = do(e, http.MethodGet, "/api/runs?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list controllers.RunListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Runs) != 1 {
		t.Errorf("expected 1 run with limit=1, got %d", len(list.Runs))
	}

	if rec := do(e, http.MethodGet, "/api/runs?limit=abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rec.Code)
	}

	if rec := do(e, http.MethodDelete, "/api/runs/"+run.ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("cancel status = %d", rec.Code)
	}
	if rec := do(e, http.MethodDelete, "/api/runs/"+run.ID, ""); rec.Code != http.StatusConflict {
		t.Errorf("second cancel status = %d", rec.Code)
	}
	if rec := do(e, http.MethodDelete, "/api/runs/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown cancel status = %d", rec.Code)
	}
}

func TestRunPlaylist(t *testing.T) {
	e, runs, _ := newTestServer(t)
	dir := t.TempDir()
	run, _ := runs.Add(context.Background(), "http://host/a.m3u8", dir)

	if rec := do(e, http.MethodGet, "/api/runs/"+run.ID+"/playlist", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing playlist status = %d", rec.Code)
	}

	body := "#EXTM3U\n#EXTINF:4,\nseg0.ts\n"
	if err := cache.NewPlaylistCache().Put(dir, []byte(body)); err != nil {
		t.Fatal(err)
	}

	rec := do(e, http.MethodGet, "/api/runs/"+run.ID+"/playlist", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != body {
		t.Errorf("body = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/vnd.apple.mpegurl") {
		t.Errorf("content type = %s", ct)
	}
}
