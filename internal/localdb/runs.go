package localdb

import (
	"context"
	"fmt"
	"time"

	"github.com/campusdesk/campussync/internal/schema"
)

// RecordRun appends a full-sync attempt to the sync history.
func (db *DB) RecordRun(ctx context.Context, run schema.SyncRun) error {
	query := `
	INSERT INTO sync_runs (id, started_at, finished_at, records, error)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		finished_at = excluded.finished_at,
		records = excluded.records,
		error = excluded.error
	`

	_, err := db.conn.ExecContext(ctx, query,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Records,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record sync run %s: %w", run.ID, err)
	}
	return nil
}

// RecentRuns returns up to limit sync runs, newest first.
func (db *DB) RecentRuns(ctx context.Context, limit int) ([]schema.SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := db.conn.QueryContext(ctx, `
	SELECT id, started_at, finished_at, records, error
	FROM sync_runs
	ORDER BY started_at DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []schema.SyncRun
	for rows.Next() {
		var run schema.SyncRun
		var startedAt, finishedAt string
		if err := rows.Scan(&run.ID, &startedAt, &finishedAt, &run.Records, &run.Error); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}

		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			run.StartedAt = t
		}
		if t, err := time.Parse(time.RFC3339Nano, finishedAt); err == nil {
			run.FinishedAt = t
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync runs: %w", err)
	}

	return runs, nil
}
