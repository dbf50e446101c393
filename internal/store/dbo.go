package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/datallboy/gohls/internal/domain"
)

// rowScanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const runColumns = `id, playlist_url, out_dir, status, error, created_at, finished_at,
	total, completed, skipped, failed, bytes, failures`

// runDBO maps to the runs table. Timestamps are unix nanoseconds.
type runDBO struct {
	ID          string         `db:"id"`
	PlaylistURL string         `db:"playlist_url"`
	OutDir      string         `db:"out_dir"`
	Status      string         `db:"status"`
	Error       sql.NullString `db:"error"`
	CreatedAt   int64          `db:"created_at"`
	FinishedAt  sql.NullInt64  `db:"finished_at"`
	Total       int64          `db:"total"`
	Completed   int64          `db:"completed"`
	Skipped     int64          `db:"skipped"`
	Failed      int64          `db:"failed"`
	Bytes       int64          `db:"bytes"`
	Failures    string         `db:"failures"`
}

// Mapper: Domain Run to DBO
func (r *runDBO) FromDomain(run *domain.Run) error {
	s := run.Snapshot()

	failures, err := json.Marshal(s.Summary.Failures)
	if err != nil {
		return fmt.Errorf("failed to encode failures: %w", err)
	}

	r.ID = s.ID
	r.PlaylistURL = s.PlaylistURL
	r.OutDir = s.OutDir
	r.Status = string(s.Status)
	r.Error = sql.NullString{String: s.Error, Valid: s.Error != ""}
	r.CreatedAt = s.CreatedAt.UnixNano()
	r.FinishedAt = sql.NullInt64{}
	if s.FinishedAt != nil {
		r.FinishedAt = sql.NullInt64{Int64: s.FinishedAt.UnixNano(), Valid: true}
	}
	r.Total = int64(s.Summary.Total)
	r.Completed = int64(s.Summary.Completed)
	r.Skipped = int64(s.Summary.Skipped)
	r.Failed = int64(s.Summary.Failed)
	r.Bytes = s.Summary.Bytes
	r.Failures = string(failures)
	return nil
}

// Mapper: DBO to Domain Run
func (r *runDBO) ToDomain() (*domain.Run, error) {
	var failures []domain.FailureEntry
	if r.Failures != "" {
		if err := json.Unmarshal([]byte(r.Failures), &failures); err != nil {
			return nil, fmt.Errorf("failed to decode failures for %s: %w", r.ID, err)
		}
	}

	s := domain.RunSnapshot{
		ID:          r.ID,
		PlaylistURL: r.PlaylistURL,
		OutDir:      r.OutDir,
		Status:      domain.JobStatus(r.Status),
		Error:       r.Error.String,
		CreatedAt:   time.Unix(0, r.CreatedAt).UTC(),
		Summary: domain.RunSummary{
			Total:     int(r.Total),
			Completed: int(r.Completed),
			Skipped:   int(r.Skipped),
			Failed:    int(r.Failed),
			Bytes:     r.Bytes,
			Failures:  failures,
		},
	}
	if r.FinishedAt.Valid {
		t := time.Unix(0, r.FinishedAt.Int64).UTC()
		s.FinishedAt = &t
	}
	return domain.RestoreRun(s), nil
}

func (r *runDBO) scan(row rowScanner) error {
	return row.Scan(&r.ID, &r.PlaylistURL, &r.OutDir, &r.Status, &r.Error, &r.CreatedAt, &r.FinishedAt,
		&r.Total, &r.Completed, &r.Skipped, &r.Failed, &r.Bytes, &r.Failures)
}

// args returns the column values in runColumns order.
func (r *runDBO) args() []any {
	return []any{r.ID, r.PlaylistURL, r.OutDir, r.Status, r.Error, r.CreatedAt, r.FinishedAt,
		r.Total, r.Completed, r.Skipped, r.Failed, r.Bytes, r.Failures}
}
