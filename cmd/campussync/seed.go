package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campusdesk/campussync/internal/schema"
	"github.com/campusdesk/campussync/internal/seed"
	"github.com/campusdesk/campussync/internal/ui"
)

var seedCmd = &cobra.Command{
	Use:     "seed",
	GroupID: "data",
	Short:   "Load baseline records into empty collections",
	Long: `Insert baseline records into every local collection that is still empty.

Records come from seed.file, or the built-in baseline when unset. Collections
that already hold records are left alone, so running seed twice is safe.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		f, err := seed.Load(cfg.Seed.File)
		if err != nil {
			fatalf("%v", err)
		}

		a, err := openLocal(ctx, cfg)
		if err != nil {
			fatalf("%v", err)
		}
		defer a.Close()

		inserted, err := seed.Apply(ctx, a.db, f, a.logs.Logger("[seed] "))
		if err != nil {
			a.Close()
			fatalf("%v", err)
		}

		total := 0
		for _, c := range schema.Collections() {
			if n := inserted[c]; n > 0 {
				fmt.Printf("   %-16s %d\n", c, n)
				total += n
			}
		}
		if total == 0 {
			fmt.Printf("%s Nothing to seed\n", ui.RenderMuted("·"))
			return
		}
		fmt.Printf("%s Seeded %d records; run 'campussync sync' to push them\n", ui.RenderPass("✓"), total)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
