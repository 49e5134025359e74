package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/campusdesk/campussync/internal/daemon"
	"github.com/campusdesk/campussync/internal/dashboard"
	"github.com/campusdesk/campussync/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "sync",
	Short:   "Run background sync",
	Long: `Run campussync in the foreground until interrupted.

The daemon:
  1. Seeds empty collections and syncs once if the remote is reachable
  2. Probes the remote every sync.probe_interval and syncs when it comes back
  3. Runs a full sync on sync.schedule while online
  4. Watches the local database and syncs shortly after local writes
  5. Serves a status dashboard on dashboard.port (0 disables it)

WebSocket endpoint: ws://localhost:<port>/ws`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a, err := openApp(ctx, cfg)
		if err != nil {
			fatalf("%v", err)
		}
		defer a.Close()

		var services []daemon.Service
		if cfg.Dashboard.Port > 0 {
			server := dashboard.NewServer(&dashboard.Config{
				Port:         cfg.Dashboard.Port,
				Status:       a.engine,
				Connectivity: a.monitor,
				Logger:       a.logs.Logger("[dashboard] "),
			})
			detach := dashboard.NewHandler(server, a.logs.Logger("[dashboard] ")).Attach(a.engine, a.monitor)
			defer detach()
			services = append(services, server)
		}

		d, err := daemon.New(a.db, a.engine, a.monitor, &daemon.Config{
			Schedule:         cfg.Sync.Schedule,
			DebounceInterval: cfg.Sync.Debounce,
			SeedFile:         cfg.Seed.File,
			Logger:           a.logs.Logger("[daemon] "),
		}, services...)
		if err != nil {
			a.Close()
			fatalf("%v", err)
		}

		fmt.Printf("%s Starting campussync daemon...\n", ui.RenderAccent("→"))
		fmt.Printf("   Local:     %s\n", a.db.Path())
		fmt.Printf("   Remote:    %s (%s)\n", cfg.Remote.Driver, remoteState(a.monitor.IsOnline()))
		if cfg.Dashboard.Port > 0 {
			fmt.Printf("   Dashboard: http://localhost:%d\n", cfg.Dashboard.Port)
		}
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		if err := d.Start(ctx); err != nil {
			a.Close()
			fatalf("daemon stopped: %v", err)
		}
	},
}

func remoteState(online bool) string {
	if online {
		return "reachable"
	}
	return "unreachable"
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
