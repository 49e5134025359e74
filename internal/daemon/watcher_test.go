package daemon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/campusdesk/campussync/internal/localdb"
)

func TestEventOpString(t *testing.T) {
	tests := []struct {
		op   EventOp
		want string
	}{
		{OpCreate, "create"},
		{OpModify, "modify"},
		{OpDelete, "delete"},
		{EventOp(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("EventOp(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestDBWatcher_ReportsDatabaseWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "campussync.db")

	db, err := localdb.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()
	if err := db.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}

	w, err := NewDBWatcher()
	if err != nil {
		t.Fatalf("NewDBWatcher failed: %v", err)
	}
	if err := w.Start(path); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if !w.IsRunning() {
		t.Error("Expected watcher to be running")
	}
	if err := w.Start(path); err == nil {
		t.Error("Expected error starting a running watcher")
	}

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := db.Insert(context.Background(), newClass("Grade 7")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	select {
	case ev := <-w.Events():
		if !strings.HasPrefix(filepath.Base(ev.Path), "campussync.db") {
			t.Errorf("Unexpected event for %s", ev.Path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for database event")
	}
}

func TestDBWatcher_StopClosesChannels(t *testing.T) {
	w, err := NewDBWatcher()
	if err != nil {
		t.Fatalf("NewDBWatcher failed: %v", err)
	}
	if err := w.Start(filepath.Join(t.TempDir(), "campussync.db")); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if w.IsRunning() {
		t.Error("Expected watcher to be stopped")
	}

	if _, ok := <-w.Events(); ok {
		t.Error("Expected events channel to be closed")
	}
	if _, ok := <-w.Errors(); ok {
		t.Error("Expected errors channel to be closed")
	}
}
