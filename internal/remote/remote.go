// Package remote defines the document store that local records are mirrored
// to, and an in-process implementation of it.
//
// The store is addressed by collection name and a caller-chosen document id.
// Writes merge: fields present in the written document overwrite the stored
// ones, fields not mentioned are left alone. Every write stamps the document
// with SyncedAtField using the store's own clock.
package remote

import (
	"context"
	"errors"
)

// MaxBatchOps is the most operations a single batch may hold.
const MaxBatchOps = 500

// SyncedAtField is the server-assigned timestamp field added on every write.
// Values supplied by the caller under this key are ignored.
const SyncedAtField = "syncedAt"

var (
	// ErrBatchFull is returned by Batch.Set once MaxBatchOps operations are queued.
	ErrBatchFull = errors.New("batch is full")

	// ErrBatchCommitted is returned when a batch is used after Commit.
	ErrBatchCommitted = errors.New("batch already committed")
)

// Store is the remote document store.
type Store interface {
	// UpsertMerge creates the document if missing, otherwise merges doc into it.
	UpsertMerge(ctx context.Context, collection, id string, doc map[string]any) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Batch starts a new write batch.
	Batch() Batch

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// Batch groups upsert-merge writes that are committed together.
//
// MemoryStore applies a batch all at once. Other stores may leave part of a
// failed batch applied; since every write is an idempotent merge, committing
// the same writes again is always safe.
type Batch interface {
	// Set queues an upsert-merge of doc into collection/id.
	Set(collection, id string, doc map[string]any) error

	// Len returns the number of queued operations.
	Len() int

	// Commit applies the queued operations. Committing an empty batch is a no-op.
	Commit(ctx context.Context) error
}
