package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/datallboy/gohls/internal/app"
	"github.com/datallboy/gohls/internal/domain"
	"github.com/datallboy/gohls/internal/engine"
	"github.com/datallboy/gohls/internal/infra/config"
	"github.com/datallboy/gohls/internal/playlist"
	"github.com/dustin/go-humanize"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newDownloadCmd() *cobra.Command {
	var (
		name    string
		headers []string
	)

	cmd := &cobra.Command{
		Use:   "download <playlist-url>",
		Short: "Download every segment of a playlist into a local directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			if err := applyHeaders(cfg, headers); err != nil {
				return err
			}
			return runDownload(cmd.Context(), cfg, args[0], name)
		},
	}

	flags := cmd.Flags()
	flags.StringP("out-dir", "o", "", "Parent directory for downloads (default ./data)")
	flags.StringVarP(&name, "name", "n", "", "Directory name under out-dir (default derived from the url)")
	flags.IntP("concurrency", "j", 0, "Number of concurrent segment downloads (default 8)")
	flags.Int("max-redirects", 0, "Maximum redirects followed per request (default 10)")
	flags.Duration("timeout", 0, "Per-request timeout, 0 for none")
	flags.String("proxy", "", "Proxy url for every request")
	flags.String("user-agent", "", "User-Agent header")
	flags.Float64("rate-limit", 0, "Maximum requests per second, 0 for unlimited")
	flags.Bool("save-playlist", true, "Save the playlist text next to the segments")
	flags.StringArrayVarP(&headers, "header", "H", nil, `Extra request header, "Key: Value" (repeatable)`)
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-path", "", "Log file path")
	flags.String("store", "", "Run history store: sqlite, postgres or none")

	return cmd
}

// applyHeaders merges "Key: Value" flags over the configured headers.
func applyHeaders(cfg *config.Config, headers []string) error {
	for _, h := range headers {
		key, value, ok := strings.Cut(h, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("invalid header %q, expected \"Key: Value\"", h)
		}
		if cfg.Download.Headers == nil {
			cfg.Download.Headers = make(map[string]string)
		}
		cfg.Download.Headers[key] = strings.TrimSpace(value)
	}
	return nil
}

// resolveOutDir validates the playlist url and picks the run's output directory.
func resolveOutDir(cfg *config.Config, playlistURL, name string) (string, error) {
	u, err := url.Parse(playlistURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid playlist url %q: must be an absolute http(s) url", playlistURL)
	}

	dirName := playlist.DirName(playlistURL)
	if name != "" {
		dirName = playlist.SanitizeName(name, dirName)
	}
	return filepath.Join(cfg.Download.OutDir, dirName), nil
}

func runDownload(parent context.Context, cfg *config.Config, playlistURL, name string) error {
	outDir, err := resolveOutDir(cfg, playlistURL, name)
	if err != nil {
		return err
	}

	// The progress bar owns the terminal; logs still go to the log file
	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	if interactive {
		cfg.Log.IncludeStdout = false
	}

	appCtx, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer closeApp(appCtx)

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("📥 Playlist: %s\n", playlistURL)
	fmt.Printf("📁 Output:   %s\n", outDir)
	fmt.Printf("⚙️  Workers:  %d\n\n", cfg.Download.Concurrency)

	run := recordStart(ctx, appCtx, playlistURL, outDir)

	progress := engine.NewCLIProgress(os.Stdout)
	start := time.Now()
	summary, runErr := appCtx.Downloader.Run(ctx, playlistURL, outDir, progress.Observe)
	progress.Finish()

	if runErr == nil && ctx.Err() != nil {
		runErr = errors.New("download interrupted")
	}
	recordFinish(appCtx, run, summary, runErr)

	if runErr != nil {
		return runErr
	}

	printSummary(summary, time.Since(start))

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d segments failed; run the same command again to retry them", summary.Failed, summary.Total)
	}
	return nil
}

func printSummary(s domain.RunSummary, elapsed time.Duration) {
	fmt.Println()
	fmt.Println("📊 Download summary")
	fmt.Printf("   Total:      %d\n", s.Total)
	fmt.Printf("   Downloaded: %d (%s)\n", s.Completed, humanize.Bytes(uint64(s.Bytes)))
	fmt.Printf("   Skipped:    %d\n", s.Skipped)
	fmt.Printf("   Failed:     %d\n", s.Failed)
	fmt.Printf("   Elapsed:    %s\n", elapsed.Round(time.Millisecond))

	if len(s.Failures) > 0 {
		fmt.Println("\n❌ Failed segments:")
		for _, f := range s.Failures {
			fmt.Printf("   %s: %s\n", f.Filename, f.Reason)
		}
	}
}

// recordStart saves the CLI run to the history store, if one is configured.
func recordStart(ctx context.Context, appCtx *app.Context, playlistURL, outDir string) *domain.Run {
	run := domain.NewRun(ksuid.New().String(), playlistURL, outDir, time.Now().UTC())
	run.SetStatus(domain.StatusDownloading)
	if appCtx.Store != nil {
		if err := appCtx.Store.SaveRun(ctx, run); err != nil {
			appCtx.Logger.Warn("Could not record run in history: %v", err)
		}
	}
	return run
}

func recordFinish(appCtx *app.Context, run *domain.Run, summary domain.RunSummary, runErr error) {
	if summary.Total > 0 {
		run.SetSummary(summary)
	}
	if runErr != nil {
		run.Finish(domain.StatusFailed, runErr.Error(), time.Now().UTC())
	} else {
		run.Finish(domain.StatusCompleted, "", time.Now().UTC())
	}

	if appCtx.Store != nil {
		if err := appCtx.Store.SaveRun(context.Background(), run); err != nil {
			appCtx.Logger.Warn("Could not record run in history: %v", err)
		}
	}
}
