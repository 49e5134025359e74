package daemon

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/campusdesk/campussync/internal/localdb"
	"github.com/campusdesk/campussync/internal/remote"
	"github.com/campusdesk/campussync/internal/schema"
	"github.com/campusdesk/campussync/internal/status"
	"github.com/campusdesk/campussync/internal/syncer"
)

var discard = log.New(io.Discard, "", 0)

type fakeMonitor struct {
	online  atomic.Bool
	runs    atomic.Int32
	stopped atomic.Bool
}

func newFakeMonitor(online bool) *fakeMonitor {
	m := &fakeMonitor{}
	m.online.Store(online)
	return m
}

func (m *fakeMonitor) IsOnline() bool { return m.online.Load() }

func (m *fakeMonitor) Run(ctx context.Context) {
	m.runs.Add(1)
	<-ctx.Done()
}

func (m *fakeMonitor) Stop() { m.stopped.Store(true) }

// failingStore accepts single writes but rejects every batch.
type failingStore struct {
	*remote.MemoryStore
}

func (s failingStore) Batch() remote.Batch { return &failingBatch{} }

type failingBatch struct{ n int }

func (b *failingBatch) Set(collection, id string, doc map[string]any) error {
	b.n++
	return nil
}

func (b *failingBatch) Len() int { return b.n }

func (b *failingBatch) Commit(ctx context.Context) error {
	return errors.New("remote unavailable")
}

type fakeService struct {
	started atomic.Bool
	stopped atomic.Bool
}

func (s *fakeService) Start() error { s.started.Store(true); return nil }
func (s *fakeService) Stop() error  { s.stopped.Store(true); return nil }

type harness struct {
	db      *localdb.DB
	remote  *remote.MemoryStore
	engine  *syncer.Engine
	monitor *fakeMonitor
}

func newHarness(t *testing.T, online bool, store remote.Store) *harness {
	t.Helper()

	db, err := localdb.Open(filepath.Join(t.TempDir(), "campussync.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}

	mem := remote.NewMemoryStore()
	if store == nil {
		store = mem
	}

	cfg := syncer.DefaultConfig()
	cfg.Logger = discard
	cfg.Recorder = db
	engine, err := syncer.New(db, store, status.NewTracker(), cfg)
	if err != nil {
		t.Fatalf("syncer.New failed: %v", err)
	}

	return &harness{
		db:      db,
		remote:  mem,
		engine:  engine,
		monitor: newFakeMonitor(online),
	}
}

func (h *harness) daemon(t *testing.T, cfg *Config, services ...Service) *Daemon {
	t.Helper()
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.Logger = discard

	d, err := New(h.db, h.engine, h.monitor, cfg, services...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return d
}

func newClass(name string) *schema.Class {
	return &schema.Class{
		Name:         name,
		Section:      "B",
		AcademicYear: "2026",
		Capacity:     30,
		CreatedAt:    time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC),
	}
}

func TestNew_Validation(t *testing.T) {
	h := newHarness(t, true, nil)

	if _, err := New(nil, h.engine, h.monitor, nil); err == nil {
		t.Error("Expected error for nil store")
	}
	if _, err := New(h.db, nil, h.monitor, nil); err == nil {
		t.Error("Expected error for nil engine")
	}
	if _, err := New(h.db, h.engine, nil, nil); err == nil {
		t.Error("Expected error for nil monitor")
	}

	d, err := New(h.db, h.engine, h.monitor, &Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if d.config.Logger == nil {
		t.Error("Expected default logger")
	}
	if d.config.DebounceInterval != DefaultConfig().DebounceInterval {
		t.Errorf("Expected default debounce, got %v", d.config.DebounceInterval)
	}
}

func TestInitialize_SeedsAndSyncsOnce(t *testing.T) {
	h := newHarness(t, true, nil)
	d := h.daemon(t, nil)
	ctx := context.Background()

	if err := d.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := d.Initialize(ctx); err != nil {
		t.Fatalf("Second Initialize failed: %v", err)
	}

	count, err := h.db.Count(ctx, schema.Classes)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 seeded classes, got %d", count)
	}

	if n := h.remote.Len(string(schema.Classes)); n != 2 {
		t.Errorf("Expected 2 remote classes, got %d", n)
	}
	if n := h.remote.Len(string(schema.Institutes)); n != 1 {
		t.Errorf("Expected 1 remote institute, got %d", n)
	}

	st := h.engine.Status()
	if st.LastSyncedAt == nil {
		t.Error("Expected LastSyncedAt after startup sync")
	}
	if st.PendingChanges != 0 {
		t.Errorf("Expected no pending changes, got %d", st.PendingChanges)
	}

	runs, err := h.db.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("Expected exactly one sync run, got %d", len(runs))
	}
}

func TestInitialize_OfflineSkipsSync(t *testing.T) {
	h := newHarness(t, false, nil)
	d := h.daemon(t, nil)

	if err := d.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if n := h.remote.Len(string(schema.Classes)); n != 0 {
		t.Errorf("Expected nothing pushed while offline, got %d classes", n)
	}

	// 1 institute, 2 classes, 1 staff, 2 fee structures, 1 notice
	if got := h.engine.Status().PendingChanges; got != 7 {
		t.Errorf("Expected 7 pending changes, got %d", got)
	}
}

func TestInitialize_SyncFailureDoesNotFail(t *testing.T) {
	h := newHarness(t, true, failingStore{remote.NewMemoryStore()})
	d := h.daemon(t, nil)

	if err := d.Initialize(context.Background()); err != nil {
		t.Fatalf("Expected startup sync failure to be logged only, got %v", err)
	}

	st := h.engine.Status()
	if st.Error == "" {
		t.Error("Expected sync error in status")
	}
	if st.IsSyncing {
		t.Error("Expected IsSyncing to be false after failure")
	}
}

func TestInitialize_SeedErrorIsSticky(t *testing.T) {
	h := newHarness(t, true, nil)
	d := h.daemon(t, &Config{SeedFile: filepath.Join(t.TempDir(), "missing.toml")})

	err := d.Initialize(context.Background())
	if err == nil {
		t.Fatal("Expected error for missing seed file")
	}
	if again := d.Initialize(context.Background()); again != err {
		t.Errorf("Expected the first error again, got %v", again)
	}
}

func TestHandleLocalChanges(t *testing.T) {
	h := newHarness(t, false, nil)
	d := h.daemon(t, &Config{SkipSeed: true})
	ctx := context.Background()

	if err := d.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if _, err := h.db.Insert(ctx, newClass("Grade 3")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, err := h.db.Insert(ctx, newClass("Grade 4")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	d.handleLocalChanges(ctx)
	if got := h.engine.Status().PendingChanges; got != 2 {
		t.Errorf("Expected 2 pending changes, got %d", got)
	}
	if n := h.remote.Len(string(schema.Classes)); n != 0 {
		t.Errorf("Expected no push while offline, got %d", n)
	}

	// Bookkeeping writes do not count as changes.
	if err := h.db.RecordRun(ctx, schema.SyncRun{ID: "r1", StartedAt: time.Now(), FinishedAt: time.Now()}); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	d.handleLocalChanges(ctx)
	if got := h.engine.Status().PendingChanges; got != 2 {
		t.Errorf("Expected pending changes unchanged, got %d", got)
	}

	h.monitor.online.Store(true)
	if _, err := h.db.Insert(ctx, newClass("Grade 5")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	d.handleLocalChanges(ctx)

	if n := h.remote.Len(string(schema.Classes)); n != 3 {
		t.Errorf("Expected 3 remote classes, got %d", n)
	}
	if got := h.engine.Status().PendingChanges; got != 0 {
		t.Errorf("Expected pending changes reset after sync, got %d", got)
	}
}

func TestScheduledSync(t *testing.T) {
	h := newHarness(t, false, nil)
	d := h.daemon(t, &Config{SkipSeed: true})
	ctx := context.Background()

	if _, err := h.db.Insert(ctx, newClass("Grade 3")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	d.scheduledSync()
	if n := h.remote.Len(string(schema.Classes)); n != 0 {
		t.Errorf("Expected no scheduled sync while offline, got %d", n)
	}

	h.monitor.online.Store(true)
	d.scheduledSync()
	if n := h.remote.Len(string(schema.Classes)); n != 1 {
		t.Errorf("Expected 1 remote class after scheduled sync, got %d", n)
	}
}

func TestStart_InvalidSchedule(t *testing.T) {
	h := newHarness(t, true, nil)
	d := h.daemon(t, &Config{Schedule: "not a schedule", SkipSeed: true})

	if err := d.Start(context.Background()); err == nil {
		t.Fatal("Expected error for invalid schedule")
	}
}

func TestStart_SyncsLocalWritesUntilCancelled(t *testing.T) {
	h := newHarness(t, true, nil)
	svc := &fakeService{}
	d := h.daemon(t, &Config{
		Schedule:         "@every 1h",
		DebounceInterval: 20 * time.Millisecond,
		SkipSeed:         true,
	}, svc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	waitFor(t, "service start", func() bool { return svc.started.Load() })

	if _, err := h.db.Insert(context.Background(), newClass("Grade 6")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	waitFor(t, "class pushed", func() bool { return h.remote.Len(string(schema.Classes)) == 1 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}

	if h.monitor.runs.Load() != 1 {
		t.Errorf("Expected monitor Run to be called once, got %d", h.monitor.runs.Load())
	}
	if !h.monitor.stopped.Load() {
		t.Error("Expected monitor to be stopped")
	}
	if !svc.stopped.Load() {
		t.Error("Expected service to be stopped")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}
