package syncer

import (
	"context"

	"github.com/campusdesk/campussync/internal/schema"
	"github.com/campusdesk/campussync/internal/status"
)

// Syncer pushes local records to the remote store.
//
// Implementations must be safe for concurrent use: the CLI, the daemon's
// schedule, the change watcher and the connectivity monitor may all call in
// at the same time.
type Syncer interface {
	// SyncCollection pushes every stored record of one collection.
	//
	// Records without a local id are skipped. Writes are grouped into
	// batches committed sequentially; an empty collection commits nothing.
	// Returns the number of records pushed before any error.
	//
	// Example:
	//   n, err := s.SyncCollection(ctx, schema.Students)
	SyncCollection(ctx context.Context, c schema.Collection) (int, error)

	// SyncSingleRecord pushes one record immediately.
	//
	// This is best effort: failures are logged and reported as false, never
	// returned, and never recorded in the sync status.
	//
	// Example:
	//   ok := s.SyncSingleRecord(ctx, student)
	SyncSingleRecord(ctx context.Context, e schema.Entity) bool

	// SyncAll pushes every collection in the fixed sync order.
	//
	// Only one full sync runs at a time. A call made while another is in
	// progress returns nil at once and asks the running call for one more
	// pass after it succeeds.
	//
	// On failure the remaining collections are skipped, the error is
	// recorded in the status and returned.
	SyncAll(ctx context.Context) error

	// DeleteRemote removes the remote copy of a local record.
	// Returns nil if the remote document doesn't exist (idempotent).
	DeleteRemote(ctx context.Context, c schema.Collection, localID int64) error

	// Status returns a snapshot of the current sync status.
	Status() status.Status

	// OnStatusChange registers fn for every status change and returns a
	// function that removes it.
	OnStatusChange(fn status.Observer) (unsubscribe func())

	// NoteLocalChange records n local mutations not yet pushed.
	NoteLocalChange(n int)
}

// LocalStore is the part of the local database the engine reads from.
type LocalStore interface {
	GetAll(ctx context.Context, c schema.Collection) ([]schema.Entity, error)
}

// RunRecorder stores the outcome of each full sync.
type RunRecorder interface {
	RecordRun(ctx context.Context, run schema.SyncRun) error
}
