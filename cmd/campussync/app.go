package main

import (
	"context"
	"fmt"

	"github.com/campusdesk/campussync/internal/config"
	"github.com/campusdesk/campussync/internal/connectivity"
	"github.com/campusdesk/campussync/internal/localdb"
	"github.com/campusdesk/campussync/internal/logging"
	"github.com/campusdesk/campussync/internal/remote"
	"github.com/campusdesk/campussync/internal/remote/mongostore"
	"github.com/campusdesk/campussync/internal/status"
	"github.com/campusdesk/campussync/internal/syncer"
)

// app holds the components shared by commands.
type app struct {
	cfg     *config.Config
	logs    *logging.Sink
	db      *localdb.DB
	remote  remote.Store
	engine  *syncer.Engine
	monitor *connectivity.Monitor

	closeRemote func(ctx context.Context) error
}

// openLocal opens the local database only.
func openLocal(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg: cfg,
		logs: logging.NewSink(logging.Options{
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		}, nil),
	}

	db, err := localdb.Open(cfg.Local.Path)
	if err != nil {
		_ = a.logs.Close()
		return nil, err
	}
	if err := db.InitSchema(ctx); err != nil {
		_ = db.Close()
		_ = a.logs.Close()
		return nil, err
	}
	a.db = db
	return a, nil
}

// openApp opens the local database, the remote store, the sync engine and
// the connectivity monitor. The monitor probes the remote once on creation.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a, err := openLocal(ctx, cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.Remote.Driver {
	case config.DriverMemory:
		a.remote = remote.NewMemoryStore()
	default:
		store, err := mongostore.Connect(ctx, cfg.Remote.URI, cfg.Remote.Database)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.remote = store
		a.closeRemote = store.Close
	}

	engine, err := syncer.New(a.db, a.remote, status.NewTracker(), syncer.Config{
		BatchSize: cfg.Sync.BatchSize,
		Logger:    a.logs.Logger("[sync] "),
		Recorder:  a.db,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create sync engine: %w", err)
	}
	a.engine = engine

	a.monitor = connectivity.New(ctx, engine, a.remote, connectivity.Config{
		ProbeInterval: cfg.Sync.ProbeInterval,
		Logger:        a.logs.Logger("[monitor] "),
	})
	return a, nil
}

// Close releases everything the app opened.
func (a *app) Close() {
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.closeRemote != nil {
		_ = a.closeRemote(context.Background())
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	_ = a.logs.Close()
}
