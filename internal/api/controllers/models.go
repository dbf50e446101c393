package controllers

import "github.com/datallboy/gohls/internal/domain"

// CreateRunRequest is the body of POST /api/runs.
type CreateRunRequest struct {
	URL    string `json:"url"`
	OutDir string `json:"out_dir,omitempty"`
}

type RunListResponse struct {
	Runs []domain.RunSnapshot `json:"runs"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
