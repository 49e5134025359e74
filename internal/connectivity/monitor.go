// Package connectivity tracks whether the remote store is reachable and
// starts a recovery sync when it comes back.
//
// Policy: a sync started by a reconnect has no caller to report to, so its
// failures are logged and otherwise dropped. The next reconnect, scheduled
// sync or manual sync retries.
package connectivity

import (
	"context"
	"log"
	"os"
	"sync"
	"time"
)

// Prober checks whether the remote store can be reached.
type Prober interface {
	Ping(ctx context.Context) error
}

// SyncTrigger starts a full sync.
type SyncTrigger interface {
	SyncAll(ctx context.Context) error
}

// Config holds configuration for the monitor.
type Config struct {
	// ProbeInterval is how often Run checks reachability.
	ProbeInterval time.Duration

	// ProbeTimeout bounds a single probe.
	ProbeTimeout time.Duration

	// Logger for connectivity transitions
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ProbeInterval: 10 * time.Second,
		ProbeTimeout:  5 * time.Second,
	}
}

// Monitor holds the online flag and reacts to transitions.
type Monitor struct {
	syncer SyncTrigger
	prober Prober
	config Config
	logger *log.Logger

	mu        sync.Mutex
	online    bool
	listeners []listener
	nextID    int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type listener struct {
	id int
	fn func(online bool)
}

// New creates a monitor. The initial state comes from one probe bounded by
// ctx and ProbeTimeout; without a prober the monitor starts online. The
// initial state never triggers a sync.
func New(ctx context.Context, syncer SyncTrigger, prober Prober, cfg Config) *Monitor {
	defaults := DefaultConfig()
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = defaults.ProbeInterval
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaults.ProbeTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[monitor] ", log.LstdFlags)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		syncer: syncer,
		prober: prober,
		config: cfg,
		logger: logger,
		online: true,
		ctx:    runCtx,
		cancel: cancel,
	}

	if prober != nil {
		m.online = m.probe(ctx)
	}
	m.logger.Printf("Initial state: %s", stateName(m.online))
	return m
}

// IsOnline reports the current state.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records a "became reachable" (true) or "became unreachable"
// (false) signal. Signals that repeat the current state are ignored.
//
// Going online starts SyncAll in the background; going offline only flips
// the flag.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	listeners := make([]listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	m.logger.Printf("Connectivity changed: %s", stateName(online))
	for _, l := range listeners {
		l.fn(online)
	}

	if online && m.syncer != nil {
		m.wg.Add(1)
		go m.reconnectSync()
	}
}

// reconnectSync runs the recovery sync. Errors are logged only.
func (m *Monitor) reconnectSync() {
	defer m.wg.Done()

	m.logger.Println("Back online, starting sync")
	if err := m.syncer.SyncAll(m.ctx); err != nil {
		m.logger.Printf("Reconnect sync failed: %v", err)
	}
}

// OnChange registers fn for every state transition and returns a function
// that removes it.
func (m *Monitor) OnChange(fn func(online bool)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners = append(m.listeners, listener{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, l := range m.listeners {
			if l.id == id {
				m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// Run probes the remote store every ProbeInterval and feeds the result to
// SetOnline. It blocks until ctx is cancelled. Without a prober it only waits.
func (m *Monitor) Run(ctx context.Context) {
	if m.prober == nil {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(m.config.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			m.SetOnline(m.probe(ctx))
		}
	}
}

func (m *Monitor) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.config.ProbeTimeout)
	defer cancel()

	if err := m.prober.Ping(ctx); err != nil {
		m.logger.Printf("Probe failed: %v", err)
		return false
	}
	return true
}

// Wait blocks until in-flight reconnect syncs have finished.
func (m *Monitor) Wait() {
	m.wg.Wait()
}

// Stop cancels in-flight reconnect syncs and waits for them to return.
func (m *Monitor) Stop() {
	m.cancel()
	m.wg.Wait()
}

func stateName(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}
