package storage

import (
	"context"
	"database/sql"
)

// RecordRun stores the summary of a finished run.
func (d *DB) RecordRun(ctx context.Context, r Run) error {
	_, err := d.sql.ExecContext(ctx, "INSERT INTO runs(id, started_at, finished_at, dry_run, summary) VALUES(?,?,?,?,?)",
		r.ID, formatTime(&r.StartedAt), formatTime(&r.FinishedAt), boolToInt(r.DryRun), r.Summary)
	return err
}

// ListRuns returns the most recent runs, newest first.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := d.sql.QueryContext(ctx, "SELECT id, started_at, finished_at, dry_run, summary FROM runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished sql.NullString
			dry               int
		)
		if err := rows.Scan(&r.ID, &started, &finished, &dry, &r.Summary); err != nil {
			return nil, err
		}
		if t := parseTime(started); t != nil {
			r.StartedAt = *t
		}
		if t := parseTime(finished); t != nil {
			r.FinishedAt = *t
		}
		r.DryRun = dry == 1
		out = append(out, r)
	}
	return out, rows.Err()
}
