package syncer

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campusdesk/campussync/internal/remote"
	"github.com/campusdesk/campussync/internal/schema"
	"github.com/campusdesk/campussync/internal/serialize"
	"github.com/campusdesk/campussync/internal/status"
)

// DefaultBatchSize leaves headroom below remote.MaxBatchOps.
const DefaultBatchSize = 450

// LocalIDField carries the local id on every remote document.
const LocalIDField = "localId"

// Config holds engine settings.
type Config struct {
	// BatchSize is the number of writes per committed batch (1..remote.MaxBatchOps).
	BatchSize int

	// Logger receives progress and failure messages. Defaults to stderr.
	Logger *log.Logger

	// Now is the clock used for LastSyncedAt and run history. Defaults to time.Now.
	Now func() time.Time

	// Recorder, if set, receives the outcome of every full sync.
	Recorder RunRecorder
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize: DefaultBatchSize,
	}
}

// Engine implements Syncer.
type Engine struct {
	local     LocalStore
	remote    remote.Store
	tracker   *status.Tracker
	logger    *log.Logger
	now       func() time.Time
	recorder  RunRecorder
	batchSize int

	// running is set while a SyncAll call owns the engine; rerun asks it
	// for one more pass.
	mu      sync.Mutex
	running bool
	rerun   bool
}

var _ Syncer = (*Engine)(nil)

// New creates a sync engine.
//
// The tracker is shared with anything else that reads the sync status; if nil
// a private one is created.
//
// Example:
//
//	store, err := localdb.Open("campussync.db")
//	if err != nil {
//	    return err
//	}
//	engine, err := syncer.New(store, remote.NewMemoryStore(), status.NewTracker(), syncer.DefaultConfig())
func New(local LocalStore, store remote.Store, tracker *status.Tracker, cfg Config) (*Engine, error) {
	if local == nil {
		return nil, fmt.Errorf("local store is required")
	}
	if store == nil {
		return nil, fmt.Errorf("remote store is required")
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize < 1 || cfg.BatchSize > remote.MaxBatchOps {
		return nil, fmt.Errorf("batch size must be between 1 and %d (got %d)", remote.MaxBatchOps, cfg.BatchSize)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if tracker == nil {
		tracker = status.NewTracker()
	}

	return &Engine{
		local:     local,
		remote:    store,
		tracker:   tracker,
		logger:    cfg.Logger,
		now:       cfg.Now,
		recorder:  cfg.Recorder,
		batchSize: cfg.BatchSize,
	}, nil
}

// remoteDocument is the document written for e: its serialized fields plus
// the local id.
func remoteDocument(e schema.Entity) map[string]any {
	doc := serialize.ToRemote(e.Document())
	doc[LocalIDField] = e.LocalID()
	return doc
}

// SyncCollection implements Syncer.SyncCollection.
func (e *Engine) SyncCollection(ctx context.Context, c schema.Collection) (int, error) {
	n, err := e.syncCollection(ctx, c)
	if err != nil {
		e.logger.Printf("ERROR: Failed to sync %s after %d records: %v", c, n, err)
		return n, fmt.Errorf("failed to sync %s: %w", c, err)
	}
	return n, nil
}

func (e *Engine) syncCollection(ctx context.Context, c schema.Collection) (int, error) {
	records, err := e.local.GetAll(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("failed to read local records: %w", err)
	}

	var (
		pushed  int
		skipped int
		batches int
	)

	batch := e.remote.Batch()
	commit := func() error {
		size := batch.Len()
		if err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit batch %d: %w", batches+1, err)
		}
		batches++
		pushed += size
		batch = e.remote.Batch()
		return nil
	}

	for _, rec := range records {
		id := rec.LocalID()
		if id == 0 {
			skipped++
			continue
		}

		if err := batch.Set(string(c), schema.DocID(c, id), remoteDocument(rec)); err != nil {
			return pushed, fmt.Errorf("failed to queue %s: %w", schema.DocID(c, id), err)
		}
		if batch.Len() >= e.batchSize {
			if err := commit(); err != nil {
				return pushed, err
			}
		}
	}

	if batch.Len() > 0 {
		if err := commit(); err != nil {
			return pushed, err
		}
	}

	if skipped > 0 {
		e.logger.Printf("WARNING: Skipped %d %s records without a local id", skipped, c)
	}
	if pushed > 0 {
		e.logger.Printf("Synced %s: %d records in %d batches", c, pushed, batches)
	}
	return pushed, nil
}

// SyncSingleRecord implements Syncer.SyncSingleRecord.
func (e *Engine) SyncSingleRecord(ctx context.Context, rec schema.Entity) bool {
	c := rec.Collection()
	id := rec.LocalID()
	if id == 0 {
		e.logger.Printf("WARNING: Not syncing %s record without a local id", c)
		return false
	}

	docID := schema.DocID(c, id)
	if err := e.remote.UpsertMerge(ctx, string(c), docID, remoteDocument(rec)); err != nil {
		e.logger.Printf("WARNING: Failed to sync %s: %v", docID, err)
		return false
	}

	e.tracker.AddPending(-1)
	e.logger.Printf("Synced record: %s", docID)
	return true
}

// SyncAll implements Syncer.SyncAll.
//
// A call made while a full sync is running returns nil at once but is not
// lost: the running call does one more pass when it finishes, so writes that
// landed after their collection was read still get pushed.
func (e *Engine) SyncAll(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.rerun = true
		e.mu.Unlock()
		e.logger.Printf("Sync already in progress, queued another pass")
		return nil
	}
	e.running = true
	e.mu.Unlock()

	released := false
	defer func() {
		if !released {
			e.release()
		}
	}()

	for {
		err := e.syncAllOnce(ctx)
		if !e.continueOrRelease(err == nil && ctx.Err() == nil) {
			released = true
			return err
		}
		e.logger.Printf("Changes arrived during sync, running again")
	}
}

// continueOrRelease consumes a queued pass when again is true. Otherwise it
// ends the running call under the same lock SyncAll queues passes with, so
// no request can slip in between.
func (e *Engine) continueOrRelease(again bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if again && e.rerun {
		e.rerun = false
		return true
	}
	e.running = false
	e.rerun = false
	return false
}

func (e *Engine) release() {
	e.mu.Lock()
	e.running = false
	e.rerun = false
	e.mu.Unlock()
}

// syncAllOnce is one pass over every collection. The tracker is always
// finished, even when a remote driver panics.
func (e *Engine) syncAllOnce(ctx context.Context) (err error) {
	if !e.tracker.TryBegin() {
		e.logger.Printf("Sync already in progress, skipping")
		return nil
	}

	run := schema.SyncRun{
		ID:        uuid.NewString(),
		StartedAt: e.now(),
	}
	e.logger.Printf("Starting full sync (run %s)", run.ID)

	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("sync panicked: %v", r)
		}

		run.FinishedAt = e.now()
		if err != nil {
			run.Error = err.Error()
			e.tracker.Fail(err)
		} else {
			e.tracker.Succeed(run.FinishedAt)
		}
		e.recordRun(ctx, run)

		if r != nil {
			panic(r)
		}
	}()

	for _, c := range schema.Collections() {
		n, err := e.SyncCollection(ctx, c)
		run.Records += n
		if err != nil {
			return err
		}
	}

	e.logger.Printf("Full sync complete: %d records in %s",
		run.Records, e.now().Sub(run.StartedAt).Round(time.Millisecond))
	return nil
}

// recordRun stores the run outcome. Failures are logged only.
func (e *Engine) recordRun(ctx context.Context, run schema.SyncRun) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		e.logger.Printf("WARNING: Failed to record sync run %s: %v", run.ID, err)
	}
}

// DeleteRemote implements Syncer.DeleteRemote.
func (e *Engine) DeleteRemote(ctx context.Context, c schema.Collection, localID int64) error {
	if localID == 0 {
		return nil
	}

	docID := schema.DocID(c, localID)
	if err := e.remote.Delete(ctx, string(c), docID); err != nil {
		return fmt.Errorf("failed to delete remote %s: %w", docID, err)
	}

	e.logger.Printf("Deleted remote record: %s", docID)
	return nil
}

// Status implements Syncer.Status.
func (e *Engine) Status() status.Status {
	return e.tracker.Snapshot()
}

// OnStatusChange implements Syncer.OnStatusChange.
func (e *Engine) OnStatusChange(fn status.Observer) func() {
	return e.tracker.Subscribe(fn)
}

// NoteLocalChange implements Syncer.NoteLocalChange.
func (e *Engine) NoteLocalChange(n int) {
	if n > 0 {
		e.tracker.AddPending(n)
	}
}
