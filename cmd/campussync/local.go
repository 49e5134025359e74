package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campusdesk/campussync/internal/schema"
	"github.com/campusdesk/campussync/internal/ui"
)

var localCmd = &cobra.Command{
	Use:     "local",
	GroupID: "data",
	Short:   "Manage the local database",
}

var localClearCmd = &cobra.Command{
	Use:   "clear <collection>",
	Short: "Delete every local record of a collection",
	Long: `Delete every record of one collection from the local database.

Remote copies are not touched. Asks for confirmation unless --yes is given.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		yes, _ := cmd.Flags().GetBool("yes")

		c, err := schema.ParseCollection(args[0])
		if err != nil {
			fatalf("%v", err)
		}

		a, err := openLocal(ctx, cfg)
		if err != nil {
			fatalf("%v", err)
		}
		defer a.Close()

		n, err := a.db.Count(ctx, c)
		if err != nil {
			a.Close()
			fatalf("%v", err)
		}
		if n == 0 {
			fmt.Printf("%s %s is already empty\n", ui.RenderMuted("·"), c)
			return
		}

		if !yes {
			ok, err := ui.Confirm(
				fmt.Sprintf("Delete all %d local %s records?", n, c),
				"Remote copies are kept. This cannot be undone.",
			)
			if err != nil {
				a.Close()
				fatalf("%v", err)
			}
			if !ok {
				fmt.Println("Aborted")
				return
			}
		}

		if err := a.db.Clear(ctx, c); err != nil {
			a.Close()
			fatalf("%v", err)
		}
		fmt.Printf("%s Cleared %d %s records\n", ui.RenderPass("✓"), n, c)
	},
}

func init() {
	localClearCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	localCmd.AddCommand(localClearCmd)
	rootCmd.AddCommand(localCmd)
}
