package localdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusdesk/campussync/internal/schema"
)

// InitSchema creates all tables, indexes and triggers if they don't exist.
// It is idempotent - safe to call on every start.
func (db *DB) InitSchema(ctx context.Context) error {
	var b strings.Builder

	b.WriteString(`
	CREATE TABLE IF NOT EXISTS sync_runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		records INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at);

	CREATE TABLE IF NOT EXISTS change_seq (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		seq INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO change_seq (id, seq) VALUES (1, 0);
	`)

	for _, c := range schema.Collections() {
		table := quote(c)
		fmt.Fprintf(&b, `
	CREATE TABLE IF NOT EXISTS %s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		data TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`, table)

		for _, field := range c.IndexedFields() {
			fmt.Fprintf(&b, `
	CREATE INDEX IF NOT EXISTS "idx_%s_%s" ON %s(json_extract(data, '$.%s'));`,
				c, field, table, field)
		}

		for _, op := range []string{"INSERT", "UPDATE", "DELETE"} {
			fmt.Fprintf(&b, `
	CREATE TRIGGER IF NOT EXISTS "trg_%s_%s" AFTER %s ON %s
	BEGIN
		UPDATE change_seq SET seq = seq + 1 WHERE id = 1;
	END;`, c, strings.ToLower(op), op, table)
		}
	}

	if _, err := db.conn.ExecContext(ctx, b.String()); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// ChangeSeq returns a counter that advances once per record mutation in any
// collection. Writes to bookkeeping tables do not move it.
func (db *DB) ChangeSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := db.conn.QueryRowContext(ctx, "SELECT seq FROM change_seq WHERE id = 1").Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to read change sequence: %w", err)
	}
	return seq, nil
}

// quote returns the collection as a quoted SQL identifier. Collection names
// come from the schema package, never from user input.
func quote(c schema.Collection) string {
	return `"` + string(c) + `"`
}
