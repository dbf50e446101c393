// Package fetch retrieves playlists and segments over HTTP with bounded redirect handling.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/datallboy/gohls/internal/domain"
	"golang.org/x/time/rate"
)

const DefaultMaxRedirects = 10

// Options configures the HTTP client. The zero value is usable.
type Options struct {
	ProxyURL     string
	MaxRedirects int
	Timeout      time.Duration // 0 means no per-request timeout
	UserAgent    string
	Headers      map[string]string
	RateLimit    float64 // requests per second, 0 means unlimited

	// Transport overrides the base round tripper, mostly for tests.
	Transport http.RoundTripper
}

// Client is shared by the playlist and segment fetchers.
type Client struct {
	http         *http.Client
	maxRedirects int
	limiter      *rate.Limiter
}

func NewClient(opts Options) (*Client, error) {
	base := opts.Transport
	if base == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		if opts.ProxyURL != "" {
			proxy, err := url.Parse(opts.ProxyURL)
			if err != nil {
				return nil, fmt.Errorf("invalid proxy url %q: %w", opts.ProxyURL, err)
			}
			t.Proxy = http.ProxyURL(proxy)
		} else {
			// Never pick up process-wide proxy settings implicitly
			t.Proxy = nil
		}
		base = t
	}

	maxRedirects := opts.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = DefaultMaxRedirects
	}

	c := &Client{
		http: &http.Client{
			Transport: &headerTransport{
				headers:   opts.Headers,
				userAgent: opts.UserAgent,
				base:      base,
			},
			Timeout: opts.Timeout,
			// Redirects are followed by get so the hop count stays under our control
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxRedirects: maxRedirects,
	}

	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return c, nil
}

// FetchText returns the full body of rawURL as text.
func (c *Client) FetchText(ctx context.Context, rawURL string) (string, error) {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.NetworkError{URL: resp.Request.URL.String(), Err: err}
	}

	return string(data), nil
}

// FetchToFile streams rawURL into destPath, overwriting it, and returns the bytes written.
// The body goes to a unique .part file first so a failed transfer never leaves content at destPath.
func (c *Client) FetchToFile(ctx context.Context, rawURL, destPath string) (int64, error) {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	// Each call gets its own temp file; segments sharing a name never share one
	out, err := os.CreateTemp(filepath.Dir(destPath), filepath.Base(destPath)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	partPath := out.Name()

	n, err := io.Copy(out, resp.Body)
	if err == nil {
		err = out.Chmod(0644)
	}
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close file: %w", cerr)
	}
	if err != nil {
		os.Remove(partPath)
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return n, fmt.Errorf("failed to write file: %w", err)
		}
		return n, &domain.NetworkError{URL: resp.Request.URL.String(), Err: err}
	}

	if err := os.Rename(partPath, destPath); err != nil {
		os.Remove(partPath)
		return n, fmt.Errorf("failed to finalize %s: %w", destPath, err)
	}

	return n, nil
}

// get issues a GET and follows 3xx Location headers up to maxRedirects hops.
// The returned response always has status 200 and an open body.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	current := rawURL

	for hops := 0; ; hops++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, &domain.NetworkError{URL: current, Err: err}
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, &domain.NetworkError{URL: current, Err: err}
		}

		if isRedirect(resp.StatusCode) {
			loc := resp.Header.Get("Location")
			drain(resp)

			if loc == "" {
				return nil, &domain.FetchError{URL: current, StatusCode: resp.StatusCode}
			}
			if hops >= c.maxRedirects {
				return nil, &domain.TooManyRedirectsError{URL: rawURL, Limit: c.maxRedirects}
			}

			next, err := resp.Request.URL.Parse(loc)
			if err != nil {
				return nil, fmt.Errorf("invalid redirect location %q: %w", loc, err)
			}
			current = next.String()
			continue
		}

		if resp.StatusCode != http.StatusOK {
			drain(resp)
			return nil, &domain.FetchError{URL: current, StatusCode: resp.StatusCode}
		}

		return resp, nil
	}
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
