package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/datallboy/gohls/internal/domain"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/playlist.m3u8", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#EXTM3U\n#EXTINF:10,\nseg0.ts\n"))
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/playlist.m3u8", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/found", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "moved", http.StatusFound)
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	mux.HandleFunc("/nolocation", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/seg.ts", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("segment-bytes"))
	})
	mux.HandleFunc("/headers", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.Header.Get("User-Agent") + "|" + r.Header.Get("Referer")))
	})
	mux.HandleFunc("/missing.ts", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	c, err := NewClient(opts)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestFetchText(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, Options{})

	tests := []struct {
		name string
		path string
	}{
		{"direct", "/playlist.m3u8"},
		{"301 redirect", "/moved"},
		{"chained relative redirect", "/found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := c.FetchText(context.Background(), srv.URL+tt.path)
			if err != nil {
				t.Fatalf("FetchText() error = %v", err)
			}
			if body != "#EXTM3U\n#EXTINF:10,\nseg0.ts\n" {
				t.Errorf("unexpected body %q", body)
			}
		})
	}
}

func TestFetchTextErrors(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, Options{MaxRedirects: 3})

	t.Run("non 200", func(t *testing.T) {
		_, err := c.FetchText(context.Background(), srv.URL+"/missing.ts")
		var fe *domain.FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("expected FetchError, got %v", err)
		}
		if fe.StatusCode != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", fe.StatusCode)
		}
		if fe.URL != srv.URL+"/missing.ts" {
			t.Errorf("unexpected URL %s", fe.URL)
		}
	})

	t.Run("redirect loop", func(t *testing.T) {
		_, err := c.FetchText(context.Background(), srv.URL+"/loop")
		var re *domain.TooManyRedirectsError
		if !errors.As(err, &re) {
			t.Fatalf("expected TooManyRedirectsError, got %v", err)
		}
		if re.Limit != 3 {
			t.Errorf("expected limit 3, got %d", re.Limit)
		}
	})

	t.Run("redirect without location", func(t *testing.T) {
		_, err := c.FetchText(context.Background(), srv.URL+"/nolocation")
		var fe *domain.FetchError
		if !errors.As(err, &fe) || fe.StatusCode != http.StatusFound {
			t.Fatalf("expected FetchError with 302, got %v", err)
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		addr := dead.URL
		dead.Close()

		_, err := c.FetchText(context.Background(), addr+"/playlist.m3u8")
		var ne *domain.NetworkError
		if !errors.As(err, &ne) {
			t.Fatalf("expected NetworkError, got %v", err)
		}
	})
}

func TestHeadersInjected(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, Options{
		UserAgent: "gohls-test",
		Headers:   map[string]string{"Referer": "https://example.com/"},
	})

	body, err := c.FetchText(context.Background(), srv.URL+"/headers")
	if err != nil {
		t.Fatal(err)
	}
	if body != "gohls-test|https://example.com/" {
		t.Errorf("unexpected headers echoed: %q", body)
	}
}

func TestFetchToFile(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, Options{})
	dir := t.TempDir()

	t.Run("writes body verbatim and overwrites", func(t *testing.T) {
		dest := filepath.Join(dir, "seg.ts")
		if err := os.WriteFile(dest, []byte("old content that is longer"), 0644); err != nil {
			t.Fatal(err)
		}

		n, err := c.FetchToFile(context.Background(), srv.URL+"/seg.ts", dest)
		if err != nil {
			t.Fatalf("FetchToFile() error = %v", err)
		}
		if n != int64(len("segment-bytes")) {
			t.Errorf("expected %d bytes, got %d", len("segment-bytes"), n)
		}

		data, err := os.ReadFile(dest)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "segment-bytes" {
			t.Errorf("unexpected file content %q", data)
		}
		assertNoPartFiles(t, dir)
	})

	t.Run("404 leaves nothing behind", func(t *testing.T) {
		dest := filepath.Join(dir, "missing.ts")

		_, err := c.FetchToFile(context.Background(), srv.URL+"/missing.ts", dest)
		var fe *domain.FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("expected FetchError, got %v", err)
		}
		if _, err := os.Stat(dest); !os.IsNotExist(err) {
			t.Error("expected no destination file")
		}
		assertNoPartFiles(t, dir)
	})

	t.Run("unwritable destination", func(t *testing.T) {
		dest := filepath.Join(dir, "no-such-dir", "seg.ts")
		if _, err := c.FetchToFile(context.Background(), srv.URL+"/seg.ts", dest); err == nil {
			t.Fatal("expected error for missing directory")
		}
	})
}

func assertNoPartFiles(t *testing.T, dir string) {
	t.Helper()
	parts, err := filepath.Glob(filepath.Join(dir, "*.part"))
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 0 {
		t.Errorf("expected no .part files, found %v", parts)
	}
}

func TestFetchToFileConcurrentSameDestination(t *testing.T) {
	bodies := map[string]string{
		"/a/seg.ts": strings.Repeat("A", 64*1024),
		"/b/seg.ts": strings.Repeat("B", 32*1024),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := bodies[r.URL.Path]
		// Stream in chunks so both transfers overlap
		for i := 0; i < len(body); i += 4096 {
			end := min(i+4096, len(body))
			w.Write([]byte(body[i:end]))
			w.(http.Flusher).Flush()
			time.Sleep(time.Millisecond)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, Options{})
	dir := t.TempDir()
	dest := filepath.Join(dir, "seg.ts")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, path := range []string{"/a/seg.ts", "/b/seg.ts"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.FetchToFile(context.Background(), srv.URL+path, dest)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("fetch %d failed: %v", i, err)
		}
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != bodies["/a/seg.ts"] && string(data) != bodies["/b/seg.ts"] {
		t.Errorf("final file (%d bytes) matches neither body", len(data))
	}
	assertNoPartFiles(t, dir)
}

func TestNewClientRejectsBadProxy(t *testing.T) {
	if _, err := NewClient(Options{ProxyURL: "://bad"}); err == nil {
		t.Error("expected error for malformed proxy url")
	}
}
