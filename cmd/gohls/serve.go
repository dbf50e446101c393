package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/datallboy/gohls/internal/api"
	"github.com/datallboy/gohls/internal/engine"
	"github.com/datallboy/gohls/internal/infra/config"
	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the download queue behind an HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("port", "", "HTTP listen port (default 8080)")
	flags.StringP("out-dir", "o", "", "Parent directory for downloads (default ./data)")
	flags.IntP("concurrency", "j", 0, "Number of concurrent segment downloads per run (default 8)")
	flags.String("store", "", "Run history store: sqlite, postgres or none")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-path", "", "Log file path")

	return cmd
}

func runServe(parent context.Context, cfg *config.Config) error {
	appCtx, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer closeApp(appCtx)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := engine.NewRunManager(appCtx, true)
	managerDone := make(chan struct{})
	go func() {
		manager.Start(ctx)
		close(managerDone)
	}()

	e := echo.New()
	api.RegisterRoutes(e, appCtx, manager)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", e)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		appCtx.Logger.Info("API listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			stop()
			<-managerDone
			return fmt.Errorf("api server failed: %w", err)
		}
	case <-ctx.Done():
	}

	appCtx.Logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appCtx.Logger.Error("API shutdown: %v", err)
	}

	// The active run records its partial tally before Start returns
	<-managerDone
	return nil
}
