package main

import (
	"fmt"

	"github.com/datallboy/gohls/internal/app"
	"github.com/datallboy/gohls/internal/engine"
	"github.com/datallboy/gohls/internal/fetch"
	"github.com/datallboy/gohls/internal/infra/config"
	"github.com/datallboy/gohls/internal/infra/logger"
	"github.com/datallboy/gohls/internal/resume"
	"github.com/datallboy/gohls/internal/store"
)

// buildApp wires the shared components. Callers must call closeApp when done.
func buildApp(cfg *config.Config) (*app.Context, error) {
	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	appCtx := app.NewContext(cfg, log)

	client, err := fetch.NewClient(fetch.Options{
		ProxyURL:     cfg.Download.Proxy,
		MaxRedirects: cfg.Download.MaxRedirects,
		Timeout:      cfg.Download.RequestTimeout,
		UserAgent:    cfg.Download.UserAgent,
		Headers:      cfg.Download.Headers,
		RateLimit:    cfg.Download.RateLimit,
	})
	if err != nil {
		log.Close()
		return nil, err
	}
	appCtx.Fetcher = client
	appCtx.Prober = resume.NewProber()

	coordinator := engine.NewCoordinator(appCtx.Fetcher, appCtx.Prober, appCtx.Logger)
	appCtx.Downloader = engine.NewDownloader(appCtx, coordinator)

	st, err := store.Open(cfg.Store)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	appCtx.Store = st

	if cfg.Download.Proxy != "" {
		log.Info("Using proxy %s", cfg.Download.Proxy)
	}
	log.Debug("Store driver: %s", cfg.Store.Driver)

	return appCtx, nil
}

func closeApp(appCtx *app.Context) {
	if appCtx.Store != nil {
		if err := appCtx.Store.Close(); err != nil {
			appCtx.Logger.Warn("Error closing store: %v", err)
		}
	}
	appCtx.Logger.Close()
}
