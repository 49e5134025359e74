// Package daemon runs campussync in the background.
//
// The daemon:
//  1. Initializes once: seeds baseline records, then syncs if online
//  2. Probes remote reachability and syncs on reconnect
//  3. Runs a full sync on a cron schedule while online
//  4. Watches the local database and syncs after local writes
//  5. Serves the status dashboard
//  6. Handles graceful shutdown
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/campusdesk/campussync/internal/schema"
	"github.com/campusdesk/campussync/internal/seed"
	"github.com/campusdesk/campussync/internal/syncer"
)

// Config holds configuration for the daemon.
type Config struct {
	// Schedule is a cron spec for periodic full syncs ("" disables).
	// Accepts standard five-field specs and descriptors like "@every 5m".
	Schedule string

	// DebounceInterval is how long the database must be quiet before local
	// writes are acted on. This batches bursts of writes together.
	DebounceInterval time.Duration

	// SeedFile is the TOML seed file ("" uses the built-in baseline).
	SeedFile string

	// SkipSeed disables seeding during Initialize.
	SkipSeed bool

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Schedule:         "@every 5m",
		DebounceInterval: 500 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// LocalStore is the part of the local database the daemon uses.
type LocalStore interface {
	seed.Store
	ChangeSeq(ctx context.Context) (int64, error)
	Path() string
}

// Monitor is the connectivity monitor driven by the daemon.
type Monitor interface {
	IsOnline() bool
	Run(ctx context.Context)
	Stop()
}

// Service is a component started and stopped with the daemon.
type Service interface {
	Start() error
	Stop() error
}

// Daemon orchestrates initialization, scheduling and change watching.
type Daemon struct {
	store    LocalStore
	engine   syncer.Syncer
	monitor  Monitor
	services []Service
	config   *Config

	initOnce sync.Once
	initErr  error

	// lastSeq is the change sequence already accounted for. Only the
	// change processing goroutine touches it after Initialize.
	lastSeq int64

	cron    *cron.Cron
	watcher *DBWatcher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Daemon instance.
//
// Services (such as the dashboard server) are started after initialization
// and stopped on shutdown, in order.
func New(store LocalStore, engine syncer.Syncer, monitor Monitor, config *Config, services ...Service) (*Daemon, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if monitor == nil {
		return nil, fmt.Errorf("monitor cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultConfig().DebounceInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		store:    store,
		engine:   engine,
		monitor:  monitor,
		services: services,
		config:   config,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Initialize brings the sync subsystem up. It runs at most once; later calls
// return the first call's result.
//
// Seeding errors are returned. A failed startup sync is logged and does not
// fail initialization, and no sync is attempted while offline: the
// connectivity monitor catches up on reconnect.
func (d *Daemon) Initialize(ctx context.Context) error {
	d.initOnce.Do(func() {
		d.initErr = d.initialize(ctx)
	})
	return d.initErr
}

func (d *Daemon) initialize(ctx context.Context) error {
	if !d.config.SkipSeed {
		if err := d.seed(ctx); err != nil {
			return err
		}
	}

	seq, err := d.store.ChangeSeq(ctx)
	if err != nil {
		return err
	}
	d.lastSeq = seq

	if !d.monitor.IsOnline() {
		d.config.Logger.Println("Offline at startup, skipping initial sync")
		return nil
	}

	if err := d.engine.SyncAll(ctx); err != nil {
		d.config.Logger.Printf("Initial sync failed (continuing): %v", err)
	}
	return nil
}

func (d *Daemon) seed(ctx context.Context) error {
	f, err := seed.Load(d.config.SeedFile)
	if err != nil {
		return err
	}

	inserted, err := seed.Apply(ctx, d.store, f, d.config.Logger)
	if err != nil {
		return fmt.Errorf("failed to seed local store: %w", err)
	}

	total := 0
	for _, c := range schema.Collections() {
		total += inserted[c]
	}
	if total > 0 {
		d.engine.NoteLocalChange(total)
	}
	return nil
}

// Start begins the daemon's operation.
//
// The daemon will:
//  1. Initialize (seed, startup sync)
//  2. Start the connectivity probe loop
//  3. Schedule periodic syncs
//  4. Watch the local database for writes
//  5. Start services
//
// This blocks until ctx is cancelled or Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	if err := d.Initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.monitor.Run(d.ctx)
	}()

	if d.config.Schedule != "" {
		d.cron = cron.New()
		if _, err := d.cron.AddFunc(d.config.Schedule, d.scheduledSync); err != nil {
			d.cancel()
			d.wg.Wait()
			return fmt.Errorf("invalid sync schedule %q: %w", d.config.Schedule, err)
		}
		d.cron.Start()
		d.config.Logger.Printf("Scheduled full sync: %s", d.config.Schedule)
	}

	if path := d.store.Path(); path != "" && path != ":memory:" {
		watcher, err := NewDBWatcher()
		if err != nil {
			d.config.Logger.Printf("Change watching disabled: %v", err)
		} else if err := watcher.Start(path); err != nil {
			d.config.Logger.Printf("Change watching disabled: %v", err)
			_ = watcher.Stop()
		} else {
			d.watcher = watcher
			d.config.Logger.Printf("Watching: %s", path)
			d.wg.Add(1)
			go d.processChanges()
		}
	}

	for _, svc := range d.services {
		if err := svc.Start(); err != nil {
			d.config.Logger.Printf("Failed to start service: %v", err)
		}
	}

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()

	if d.cron != nil {
		// Wait for a running scheduled sync to return.
		<-d.cron.Stop().Done()
	}

	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			d.config.Logger.Printf("Error closing watcher: %v", err)
		}
	}

	for _, svc := range d.services {
		if err := svc.Stop(); err != nil {
			d.config.Logger.Printf("Error stopping service: %v", err)
		}
	}

	d.wg.Wait()
	d.monitor.Stop()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// scheduledSync runs a full sync from the cron schedule.
func (d *Daemon) scheduledSync() {
	if !d.monitor.IsOnline() {
		d.config.Logger.Println("Offline, skipping scheduled sync")
		return
	}
	if err := d.engine.SyncAll(d.ctx); err != nil {
		d.config.Logger.Printf("Scheduled sync failed: %v", err)
	}
}

// processChanges debounces database file events.
func (d *Daemon) processChanges() {
	defer d.wg.Done()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-d.ctx.Done():
			return

		case _, ok := <-d.watcher.Events():
			if !ok {
				return
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(d.config.DebounceInterval)
			fire = timer.C

		case err, ok := <-d.watcher.Errors():
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)

		case <-fire:
			timer, fire = nil, nil
			d.handleLocalChanges(d.ctx)
		}
	}
}

// handleLocalChanges accounts for record writes since the last check and
// syncs them when online. Writes that did not touch records, such as the
// sync history, leave the change sequence alone and are ignored.
func (d *Daemon) handleLocalChanges(ctx context.Context) {
	seq, err := d.store.ChangeSeq(ctx)
	if err != nil {
		d.config.Logger.Printf("Error reading change sequence: %v", err)
		return
	}

	delta := seq - d.lastSeq
	if delta <= 0 {
		return
	}
	d.lastSeq = seq

	d.config.Logger.Printf("Detected %d local changes", delta)
	d.engine.NoteLocalChange(int(delta))

	if !d.monitor.IsOnline() {
		return
	}
	if err := d.engine.SyncAll(ctx); err != nil {
		d.config.Logger.Printf("Sync after local changes failed: %v", err)
	}
}
