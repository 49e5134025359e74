package daemon

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// EventOp is the kind of change seen on a database file.
type EventOp int

// Operations reported by DBWatcher.
const (
	OpCreate EventOp = iota
	OpModify
	OpDelete
)

// String returns "create", "modify", "delete" or "unknown".
func (op EventOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// FileEvent is a change to the database file or one of its journals.
type FileEvent struct {
	Path string
	Op   EventOp
}

// SQLite writes go to the main file, the WAL or the rollback journal. The
// -shm index is left out since readers touch it too.
var journalSuffixes = []string{"", "-wal", "-journal"}

const eventBuffer = 64

// DBWatcher reports writes to a SQLite database from any process.
//
// Events are hints: when the consumer falls behind, further events are
// dropped until it catches up. Callers are expected to re-read state rather
// than count events.
type DBWatcher struct {
	fs     *fsnotify.Watcher
	events chan FileEvent
	errs   chan error
	files  map[string]struct{}

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewDBWatcher creates a watcher. Nothing is watched until Start.
func NewDBWatcher() (*DBWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &DBWatcher{
		fs:     fs,
		events: make(chan FileEvent, eventBuffer),
		errs:   make(chan error, 1),
	}, nil
}

// Start watches the database at dbPath. The directory is watched rather than
// the files, so journals created later are still seen.
func (w *DBWatcher) Start(dbPath string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("watcher already running")
	}

	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dbPath, err)
	}
	w.files = make(map[string]struct{}, len(journalSuffixes))
	for _, suffix := range journalSuffixes {
		w.files[abs+suffix] = struct{}{}
	}

	if err := w.fs.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	w.running = true
	w.wg.Add(1)
	go w.run()
	return nil
}

// Stop releases the fsnotify watcher and closes Events and Errors once the
// forwarding goroutine is gone.
func (w *DBWatcher) Stop() error {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	// Closing fsnotify closes its channels, which ends run.
	err := w.fs.Close()
	if !wasRunning {
		return err
	}
	w.wg.Wait()
	close(w.events)
	close(w.errs)
	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// Events delivers database changes. It is closed by Stop.
func (w *DBWatcher) Events() <-chan FileEvent { return w.events }

// Errors delivers fsnotify errors. It is closed by Stop.
func (w *DBWatcher) Errors() <-chan error { return w.errs }

// IsRunning reports whether Start succeeded and Stop has not been called.
func (w *DBWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *DBWatcher) run() {
	defer w.wg.Done()

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			fe, relevant := w.translate(ev)
			if !relevant {
				continue
			}
			select {
			case w.events <- fe:
			default:
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

func (w *DBWatcher) translate(ev fsnotify.Event) (FileEvent, bool) {
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return FileEvent{}, false
	}
	if _, ok := w.files[abs]; !ok {
		return FileEvent{}, false
	}

	fe := FileEvent{Path: ev.Name}
	switch {
	case ev.Has(fsnotify.Create):
		fe.Op = OpCreate
	case ev.Has(fsnotify.Write):
		fe.Op = OpModify
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		fe.Op = OpDelete
	default:
		return FileEvent{}, false
	}
	return fe, true
}
