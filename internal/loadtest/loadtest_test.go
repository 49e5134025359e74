package loadtest

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/campusdesk/campussync/internal/localdb"
	"github.com/campusdesk/campussync/internal/remote"
	"github.com/campusdesk/campussync/internal/schema"
	"github.com/campusdesk/campussync/internal/status"
	"github.com/campusdesk/campussync/internal/syncer"
)

var smallOptions = Options{Classes: 4, StudentsPerClass: 10, AttendanceDays: 3}

func newDataset(t *testing.T, opts Options) *Dataset {
	t.Helper()

	db, err := localdb.Open(filepath.Join(t.TempDir(), "load.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}

	ds, err := Populate(context.Background(), db, opts)
	if err != nil {
		t.Fatalf("Populate failed: %v", err)
	}
	return ds
}

func newEngine(t *testing.T, ds *Dataset) (*syncer.Engine, *remote.MemoryStore) {
	t.Helper()

	store := remote.NewMemoryStore()
	cfg := syncer.DefaultConfig()
	cfg.Logger = log.New(io.Discard, "", 0)
	engine, err := syncer.New(ds.DB, store, status.NewTracker(), cfg)
	if err != nil {
		t.Fatalf("syncer.New failed: %v", err)
	}
	return engine, store
}

func TestPopulate(t *testing.T) {
	ds := newDataset(t, smallOptions)
	ctx := context.Background()

	if got, want := ds.Total(), smallOptions.Total(); got != want {
		t.Errorf("Expected %d records, got %d", want, got)
	}

	counts := map[schema.Collection]int{
		schema.Classes:     4,
		schema.Students:    40,
		schema.Attendances: 120,
	}
	for c, want := range counts {
		got, err := ds.DB.Count(ctx, c)
		if err != nil {
			t.Fatalf("Count(%s) failed: %v", c, err)
		}
		if got != want {
			t.Errorf("Expected %d %s, got %d", want, c, got)
		}
	}

	roster, err := ds.DB.QueryByIndex(ctx, schema.Students, "classId", ds.ClassIDs[0])
	if err != nil {
		t.Fatalf("QueryByIndex failed: %v", err)
	}
	if len(roster) != smallOptions.StudentsPerClass {
		t.Errorf("Expected %d students in first class, got %d", smallOptions.StudentsPerClass, len(roster))
	}
}

func TestPopulate_InvalidOptions(t *testing.T) {
	db, err := localdb.Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := Populate(context.Background(), db, Options{Classes: 0, StudentsPerClass: 10}); err == nil {
		t.Error("Expected error for zero classes")
	}
}

func TestRunConcurrentQueries(t *testing.T) {
	ds := newDataset(t, smallOptions)

	stats, err := ds.RunConcurrentQueries(context.Background(), 8, 5)
	if err != nil {
		t.Fatalf("RunConcurrentQueries failed: %v", err)
	}

	if stats.TotalQueries != 40 {
		t.Errorf("Expected 40 queries, got %d", stats.TotalQueries)
	}
	if stats.Errors != 0 {
		t.Errorf("Expected no errors, got %d", stats.Errors)
	}
	if stats.Min > stats.P50 || stats.P50 > stats.Max {
		t.Errorf("Percentiles out of order: %+v", stats)
	}
}

func TestMeasureSync(t *testing.T) {
	ds := newDataset(t, smallOptions)
	engine, store := newEngine(t, ds)

	res, err := ds.MeasureSync(context.Background(), engine)
	if err != nil {
		t.Fatalf("MeasureSync failed: %v", err)
	}

	if res.Records != ds.Total() {
		t.Errorf("Expected %d records, got %d", ds.Total(), res.Records)
	}
	if n := store.Len(string(schema.Attendances)); n != ds.Attendance {
		t.Errorf("Expected %d remote attendance marks, got %d", ds.Attendance, n)
	}
}

func TestRunWritesDuringSync(t *testing.T) {
	ds := newDataset(t, smallOptions)
	engine, _ := newEngine(t, ds)
	ctx := context.Background()

	before, err := ds.DB.Count(ctx, schema.Attendances)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}

	res, err := ds.RunWritesDuringSync(ctx, engine, 4)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if res.Errors != 0 {
		t.Errorf("Expected local writes to succeed during sync, got %d errors", res.Errors)
	}
	if res.Writes < 4 {
		t.Errorf("Expected at least one write per writer, got %d", res.Writes)
	}

	after, err := ds.DB.Count(ctx, schema.Attendances)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if after != before+res.Writes {
		t.Errorf("Expected %d attendance marks, got %d", before+res.Writes, after)
	}
}

func TestComputeLatencyStats(t *testing.T) {
	var durations []time.Duration
	for i := 100; i >= 1; i-- {
		durations = append(durations, time.Duration(i)*time.Millisecond)
	}

	stats := computeLatencyStats(durations)

	if stats.Min != time.Millisecond || stats.Max != 100*time.Millisecond {
		t.Errorf("Unexpected min/max: %v/%v", stats.Min, stats.Max)
	}
	if stats.P50 != 51*time.Millisecond {
		t.Errorf("Expected P50 51ms, got %v", stats.P50)
	}
	if stats.P99 != 100*time.Millisecond {
		t.Errorf("Expected P99 100ms, got %v", stats.P99)
	}
	if stats.Mean != 50500*time.Microsecond {
		t.Errorf("Expected mean 50.5ms, got %v", stats.Mean)
	}

	if empty := computeLatencyStats(nil); empty.TotalQueries != 0 {
		t.Errorf("Expected empty stats, got %+v", empty)
	}
}
