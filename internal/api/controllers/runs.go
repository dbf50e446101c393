package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/datallboy/gohls/internal/app"
	"github.com/datallboy/gohls/internal/cache"
	"github.com/datallboy/gohls/internal/domain"
	"github.com/datallboy/gohls/internal/playlist"
	"github.com/labstack/echo/v5"
)

// RunService is the part of the run manager the API needs.
type RunService interface {
	Add(ctx context.Context, playlistURL, outDir string) (*domain.Run, error)
	Get(ctx context.Context, id string) (*domain.Run, bool)
	List(ctx context.Context, limit int) ([]*domain.Run, error)
	Cancel(id string) bool
}

type RunsController struct {
	App   *app.Context
	Runs  RunService
	Cache *cache.PlaylistCache
}

// Create queues a new run. out_dir defaults to a name derived from the URL under download.out_dir.
func (ctrl *RunsController) Create(c *echo.Context) error {
	var req CreateRunRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "url must be an absolute http(s) url"})
	}

	outDir := req.OutDir
	if outDir == "" {
		outDir = filepath.Join(ctrl.App.Config.Download.OutDir, playlist.DirName(req.URL))
	}

	run, err := ctrl.Runs.Add(c.Request().Context(), req.URL, outDir)
	if err != nil {
		ctrl.App.Logger.Error("Could not queue run for %s: %v", req.URL, err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusAccepted, run.Snapshot())
}

func (ctrl *RunsController) List(c *echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
		}
		limit = n
	}

	runs, err := ctrl.Runs.List(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	resp := RunListResponse{Runs: make([]domain.RunSnapshot, 0, len(runs))}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, run.Snapshot())
	}
	return c.JSON(http.StatusOK, resp)
}

func (ctrl *RunsController) Get(c *echo.Context) error {
	run, ok := ctrl.Runs.Get(c.Request().Context(), c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "run not found"})
	}
	return c.JSON(http.StatusOK, run.Snapshot())
}

// Cancel stops a pending or active run.
func (ctrl *RunsController) Cancel(c *echo.Context) error {
	id := c.Param("id")
	if !ctrl.Runs.Cancel(id) {
		if _, ok := ctrl.Runs.Get(c.Request().Context(), id); ok {
			return c.JSON(http.StatusConflict, ErrorResponse{Error: "run already finished"})
		}
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "run not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Playlist serves the playlist text saved in the run's output directory.
func (ctrl *RunsController) Playlist(c *echo.Context) error {
	run, ok := ctrl.Runs.Get(c.Request().Context(), c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "run not found"})
	}

	data, err := ctrl.Cache.Get(run.OutDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "playlist not saved for this run"})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	return c.Stream(http.StatusOK, "application/vnd.apple.mpegurl", bytes.NewReader(data))
}
