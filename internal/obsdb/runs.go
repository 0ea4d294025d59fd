package obsdb

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// parseTimestamp handles sqlite's CURRENT_TIMESTAMP text format, falling
// back to RFC3339 for drivers that materialize TIMESTAMP columns as
// time.Time (which database/sql stringifies as RFC3339).
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Run is one recorded pipeline stage execution (generate, engineer, train).
type Run struct {
	RunID      string     `json:"run_id"`
	Stage      string     `json:"stage"`
	Detail     string     `json:"detail,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// StartRun records the start of a pipeline stage and returns its run ID.
func (db *DB) StartRun(stage, detail string) (string, error) {
	runID := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO pipeline_runs (run_id, stage, detail) VALUES (?, ?, ?)`,
		runID, stage, detail)
	if err != nil {
		return "", fmt.Errorf("record run start: %w", err)
	}
	return runID, nil
}

// FinishRun marks a pipeline stage as finished.
func (db *DB) FinishRun(runID string) error {
	res, err := db.Exec(
		`UPDATE pipeline_runs SET finished_at = CURRENT_TIMESTAMP WHERE run_id = ?`,
		runID)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("unknown run %s", runID)
	}
	return nil
}

// RecentRuns returns up to limit runs, most recent first.
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	rows, err := db.Query(
		`SELECT run_id, stage, COALESCE(detail, ''), started_at, finished_at
		 FROM pipeline_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started string
		var finished *string
		if err := rows.Scan(&r.RunID, &r.Stage, &r.Detail, &started, &finished); err != nil {
			return nil, err
		}
		if r.StartedAt, err = parseTimestamp(started); err != nil {
			return nil, err
		}
		if finished != nil {
			t, err := parseTimestamp(*finished)
			if err != nil {
				return nil, err
			}
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
