package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/campusdesk/campussync/internal/loadtest"
	"github.com/campusdesk/campussync/internal/localdb"
	"github.com/campusdesk/campussync/internal/remote"
	"github.com/campusdesk/campussync/internal/status"
	"github.com/campusdesk/campussync/internal/syncer"
	"github.com/campusdesk/campussync/internal/ui"
)

type benchReport struct {
	Records int                   `json:"records"`
	Queries *loadtest.LatencyStats `json:"queries"`
	Sync    *loadtest.SyncResult   `json:"sync"`
	Writes  *loadtest.WriteResult  `json:"writesDuringSync"`
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure local query latency and sync throughput",
	Long: `Run a load test against a throwaway database.

A temporary local database is filled with synthetic classes, students and
attendance, then:
  1. Concurrent workers look up class rosters (local query latency)
  2. A full sync pushes everything to an in-memory remote (throughput)
  3. A second full sync runs while writers insert attendance
     (local writes must keep succeeding)

The configured database and remote store are not touched.

Examples:
  campussync bench
  campussync bench --classes 40 --students 45 --days 60
  campussync bench --json`,
	Args: cobra.NoArgs,
	Run:  runBench,
}

func init() {
	defaults := loadtest.DefaultOptions()
	benchCmd.Flags().Int("classes", defaults.Classes, "Number of classes")
	benchCmd.Flags().Int("students", defaults.StudentsPerClass, "Students per class")
	benchCmd.Flags().Int("days", defaults.AttendanceDays, "Days of attendance per student")
	benchCmd.Flags().Int("workers", 20, "Concurrent query workers")
	benchCmd.Flags().Int("queries", 10, "Queries per worker")
	benchCmd.Flags().Int("writers", 4, "Concurrent writers during sync")
	benchCmd.Flags().Bool("json", false, "Output results as JSON")
	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	flags := cmd.Flags()

	opts := loadtest.Options{}
	opts.Classes, _ = flags.GetInt("classes")
	opts.StudentsPerClass, _ = flags.GetInt("students")
	opts.AttendanceDays, _ = flags.GetInt("days")
	workers, _ := flags.GetInt("workers")
	queries, _ := flags.GetInt("queries")
	writers, _ := flags.GetInt("writers")
	jsonOutput, _ := flags.GetBool("json")

	if workers <= 0 || queries <= 0 || writers <= 0 {
		fatalf("--workers, --queries and --writers must be positive")
	}

	dir, err := os.MkdirTemp("", "campussync-bench-")
	if err != nil {
		fatalf("%v", err)
	}
	defer os.RemoveAll(dir)

	db, err := localdb.Open(filepath.Join(dir, "bench.db"))
	if err != nil {
		fatalf("%v", err)
	}
	defer db.Close()
	if err := db.InitSchema(ctx); err != nil {
		fatalf("%v", err)
	}

	progress := func(format string, args ...any) {
		if !jsonOutput {
			fmt.Printf(format, args...)
		}
	}

	progress("%s Creating %d records...\n", ui.RenderAccent("→"), opts.Total())
	ds, err := loadtest.Populate(ctx, db, opts)
	if err != nil {
		fatalf("%v", err)
	}

	engine, err := syncer.New(db, remote.NewMemoryStore(), status.NewTracker(), syncer.Config{
		BatchSize: cfg.Sync.BatchSize,
		Logger:    log.New(io.Discard, "", 0),
	})
	if err != nil {
		fatalf("%v", err)
	}

	report := benchReport{Records: ds.Total()}

	progress("%s Running %d workers x %d roster queries...\n", ui.RenderAccent("→"), workers, queries)
	if report.Queries, err = ds.RunConcurrentQueries(ctx, workers, queries); err != nil {
		fatalf("%v", err)
	}

	progress("%s Measuring full sync...\n", ui.RenderAccent("→"))
	if report.Sync, err = ds.MeasureSync(ctx, engine); err != nil {
		fatalf("%v", err)
	}

	progress("%s Syncing with %d concurrent writers...\n", ui.RenderAccent("→"), writers)
	if report.Writes, err = ds.RunWritesDuringSync(ctx, engine, writers); err != nil {
		fatalf("%v", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fatalf("%v", err)
		}
		return
	}

	fmt.Printf("\n%s Roster query latency\n", ui.RenderPass("✓"))
	report.Queries.PrintStats()

	fmt.Printf("\n%s Full sync\n", ui.RenderPass("✓"))
	fmt.Printf("  Records:       %d\n", report.Sync.Records)
	fmt.Printf("  Duration:      %v\n", report.Sync.Duration)
	fmt.Printf("  Throughput:    %.0f records/s\n", report.Sync.PerSecond)

	mark := ui.RenderPass("✓")
	if report.Writes.Errors > 0 {
		mark = ui.RenderFail("✗")
	}
	fmt.Printf("\n%s Local writes during sync\n", mark)
	if report.Writes.Latency != nil {
		report.Writes.Latency.PrintStats()
	}
	fmt.Println()
}
