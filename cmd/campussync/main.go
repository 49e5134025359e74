// Command campussync keeps a school's local records mirrored to a remote
// document store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/campusdesk/campussync/internal/config"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "campussync",
	Short: "Offline-first sync of campus records to a remote store",
	Long: `campussync stores school records (students, classes, fees, attendance,
exams, notices) in a local SQLite database that is always writable, and pushes
them to a remote MongoDB database whenever it is reachable.

Configuration is read from campussync.yaml (or .toml) in the working directory
or $HOME/.campussync, then from CAMPUSSYNC_* environment variables, e.g.
CAMPUSSYNC_REMOTE_URI.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "data", Title: "Local Data Commands:"},
	)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./campussync.yaml or $HOME/.campussync/campussync.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fatalf("%v", err)
	}
}

// fatalf prints an error and exits with status 1.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
