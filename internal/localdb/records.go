package localdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/campusdesk/campussync/internal/schema"
)

// Insert validates and stores a new record, assigning its local id.
func (db *DB) Insert(ctx context.Context, e schema.Entity) (int64, error) {
	if e.LocalID() != 0 {
		return 0, fmt.Errorf("record already has local id %d", e.LocalID())
	}
	if err := e.Validate(); err != nil {
		return 0, fmt.Errorf("invalid %s record: %w", e.Collection(), err)
	}

	id, err := insert(ctx, db.conn, e)
	if err != nil {
		return 0, err
	}
	e.SetLocalID(id)
	return id, nil
}

// BulkInsert stores all records in one transaction. Either every record is
// inserted and assigned an id, or none is.
func (db *DB) BulkInsert(ctx context.Context, entities []schema.Entity) error {
	for i, e := range entities {
		if e.LocalID() != 0 {
			return fmt.Errorf("record %d already has local id %d", i, e.LocalID())
		}
		if err := e.Validate(); err != nil {
			return fmt.Errorf("invalid %s record %d: %w", e.Collection(), i, err)
		}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, len(entities))
	for i, e := range entities {
		id, err := insert(ctx, tx, e)
		if err != nil {
			return err
		}
		ids[i] = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	for i, e := range entities {
		e.SetLocalID(ids[i])
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insert(ctx context.Context, ex execer, e schema.Entity) (int64, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal %s record: %w", e.Collection(), err)
	}

	query := `INSERT INTO ` + quote(e.Collection()) + ` (data, updated_at) VALUES (?, ?)`
	res, err := ex.ExecContext(ctx, query, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s record: %w", e.Collection(), err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id: %w", err)
	}
	return id, nil
}

// Update replaces a stored record by its local id.
// Returns ErrNotFound if the record does not exist.
func (db *DB) Update(ctx context.Context, e schema.Entity) error {
	if e.LocalID() == 0 {
		return fmt.Errorf("cannot update %s record without a local id", e.Collection())
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid %s record: %w", e.Collection(), err)
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", e.Collection(), err)
	}

	query := `UPDATE ` + quote(e.Collection()) + ` SET data = ?, updated_at = ? WHERE id = ?`
	res, err := db.conn.ExecContext(ctx, query,
		string(data),
		time.Now().UTC().Format(time.RFC3339Nano),
		e.LocalID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update %s %d: %w", e.Collection(), e.LocalID(), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", e.Collection(), e.LocalID(), ErrNotFound)
	}
	return nil
}

// Delete removes a record by id.
// Returns nil if the record doesn't exist (idempotent).
func (db *DB) Delete(ctx context.Context, c schema.Collection, id int64) error {
	query := `DELETE FROM ` + quote(c) + ` WHERE id = ?`
	if _, err := db.conn.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", c, id, err)
	}
	return nil
}

// Clear removes every record from a collection.
func (db *DB) Clear(ctx context.Context, c schema.Collection) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM `+quote(c)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", c, err)
	}
	return nil
}

// Get retrieves a single record by id.
// Returns ErrNotFound if the record does not exist.
func (db *DB) Get(ctx context.Context, c schema.Collection, id int64) (schema.Entity, error) {
	query := `SELECT id, data FROM ` + quote(c) + ` WHERE id = ?`

	var data string
	err := db.conn.QueryRowContext(ctx, query, id).Scan(&id, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %d: %w", c, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %d: %w", c, id, err)
	}

	return decode(c, id, data)
}

// GetAll returns every record of a collection ordered by id.
func (db *DB) GetAll(ctx context.Context, c schema.Collection) ([]schema.Entity, error) {
	query := `SELECT id, data FROM ` + quote(c) + ` ORDER BY id ASC`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c, err)
	}
	defer rows.Close()

	return scanEntities(c, rows)
}

// QueryByIndex returns records whose indexed field equals value, ordered by id.
// Only fields declared by Collection.IndexedFields are accepted.
//
// Example:
//
//	students, err := store.QueryByIndex(ctx, schema.Students, "classId", 3)
func (db *DB) QueryByIndex(ctx context.Context, c schema.Collection, field string, value any) ([]schema.Entity, error) {
	if !c.IsIndexed(field) {
		return nil, fmt.Errorf("field %q is not indexed for %s", field, c)
	}

	query := `SELECT id, data FROM ` + quote(c) +
		` WHERE json_extract(data, '$.` + field + `') = ? ORDER BY id ASC`

	rows, err := db.conn.QueryContext(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s by %s: %w", c, field, err)
	}
	defer rows.Close()

	return scanEntities(c, rows)
}

// Count returns the number of records in a collection.
func (db *DB) Count(ctx context.Context, c schema.Collection) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+quote(c)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c, err)
	}
	return count, nil
}

// scanEntities decodes id/data rows into entities of one collection.
func scanEntities(c schema.Collection, rows *sql.Rows) ([]schema.Entity, error) {
	var entities []schema.Entity

	for rows.Next() {
		var id int64
		var data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan %s record: %w", c, err)
		}

		e, err := decode(c, id, data)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", c, err)
	}

	return entities, nil
}

func decode(c schema.Collection, id int64, data string) (schema.Entity, error) {
	e, err := schema.New(c)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s %d: %w", c, id, err)
	}
	// The row id is authoritative over whatever the JSON carried.
	e.SetLocalID(id)
	return e, nil
}
