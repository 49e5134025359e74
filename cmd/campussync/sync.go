package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusdesk/campussync/internal/schema"
	"github.com/campusdesk/campussync/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync [collection]",
	GroupID: "sync",
	Short:   "Push local records to the remote store",
	Long: `Push every local record to the remote store.

With no argument all collections are pushed in order:
  institute, classes, students, staff, feeStructures, feeTransactions,
  attendance, notices, exams, examResults

A full sync stops at the first failing collection. With a collection name only
that collection is pushed.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		var only schema.Collection
		if len(args) == 1 {
			c, err := schema.ParseCollection(args[0])
			if err != nil {
				fatalf("%v", err)
			}
			only = c
		}

		a, err := openApp(ctx, cfg)
		if err != nil {
			fatalf("%v", err)
		}
		defer a.Close()

		if !a.monitor.IsOnline() {
			a.Close()
			fatalf("remote store unreachable; local changes are kept and will sync later")
		}

		start := time.Now()
		if only != "" {
			fmt.Printf("%s Syncing %s...\n", ui.RenderAccent("→"), only)
			n, err := a.engine.SyncCollection(ctx, only)
			if err != nil {
				a.Close()
				fatalf("%v", err)
			}
			fmt.Printf("%s Synced %d %s records in %v\n", ui.RenderPass("✓"), n, only, time.Since(start).Round(time.Millisecond))
			return
		}

		fmt.Printf("%s Syncing all collections...\n", ui.RenderAccent("→"))
		if err := a.engine.SyncAll(ctx); err != nil {
			a.Close()
			fatalf("%v", err)
		}
		fmt.Printf("%s Sync complete in %v\n", ui.RenderPass("✓"), time.Since(start).Round(time.Millisecond))
		printCounts(ctx, a)
	},
}

var pushCmd = &cobra.Command{
	Use:     "push <collection> <id>",
	GroupID: "sync",
	Short:   "Push one record immediately",
	Long: `Push a single local record to the remote store.

This is best effort: failures are reported but the record stays local and is
picked up by the next full sync.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		c, id := parseRecordRef(args[0], args[1])

		a, err := openApp(ctx, cfg)
		if err != nil {
			fatalf("%v", err)
		}
		defer a.Close()

		e, err := a.db.Get(ctx, c, id)
		if err != nil {
			a.Close()
			fatalf("%v", err)
		}

		if !a.engine.SyncSingleRecord(ctx, e) {
			fmt.Printf("%s %s not pushed; it will go out with the next full sync\n",
				ui.RenderWarn("⚠"), schema.DocID(c, id))
			return
		}
		fmt.Printf("%s Pushed %s\n", ui.RenderPass("✓"), schema.DocID(c, id))
	},
}

func parseRecordRef(collection, id string) (schema.Collection, int64) {
	c, err := schema.ParseCollection(collection)
	if err != nil {
		fatalf("%v", err)
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		fatalf("invalid record id %q", id)
	}
	return c, n
}

func printCounts(ctx context.Context, a *app) {
	for _, c := range schema.Collections() {
		n, err := a.db.Count(ctx, c)
		if err != nil {
			continue
		}
		fmt.Printf("   %-16s %d\n", c, n)
	}
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(pushCmd)
}
