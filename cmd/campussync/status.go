package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/campusdesk/campussync/internal/schema"
	"github.com/campusdesk/campussync/internal/ui"
)

type runReport struct {
	ID         string    `json:"id" yaml:"id"`
	StartedAt  time.Time `json:"startedAt" yaml:"started_at"`
	FinishedAt time.Time `json:"finishedAt" yaml:"finished_at"`
	Records    int       `json:"records" yaml:"records"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
}

type statusReport struct {
	Online       bool           `json:"online" yaml:"online"`
	LastSyncedAt *time.Time     `json:"lastSyncedAt,omitempty" yaml:"last_synced_at,omitempty"`
	LastError    string         `json:"lastError,omitempty" yaml:"last_error,omitempty"`
	Records      map[string]int `json:"records" yaml:"records"`
	Runs         []runReport    `json:"runs" yaml:"runs"`
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show local record counts, reachability and sync history",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")
		limit, _ := cmd.Flags().GetInt("runs")

		switch format {
		case "text", "json", "yaml":
		default:
			fatalf("unknown format %q (want text, json or yaml)", format)
		}

		a, err := openApp(ctx, cfg)
		if err != nil {
			fatalf("%v", err)
		}
		defer a.Close()

		report := statusReport{
			Online:  a.monitor.IsOnline(),
			Records: make(map[string]int),
		}
		for _, c := range schema.Collections() {
			n, err := a.db.Count(ctx, c)
			if err != nil {
				a.Close()
				fatalf("%v", err)
			}
			report.Records[string(c)] = n
		}

		runs, err := a.db.RecentRuns(ctx, limit)
		if err != nil {
			a.Close()
			fatalf("%v", err)
		}
		for i, run := range runs {
			if i == 0 && !run.Succeeded() {
				report.LastError = run.Error
			}
			if report.LastSyncedAt == nil && run.Succeeded() {
				t := run.FinishedAt
				report.LastSyncedAt = &t
			}
			report.Runs = append(report.Runs, runReport{
				ID:         run.ID,
				StartedAt:  run.StartedAt,
				FinishedAt: run.FinishedAt,
				Records:    run.Records,
				Error:      run.Error,
			})
		}

		switch format {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				a.Close()
				fatalf("%v", err)
			}
		case "yaml":
			out, err := yaml.Marshal(report)
			if err != nil {
				a.Close()
				fatalf("%v", err)
			}
			fmt.Print(string(out))
		default:
			printStatus(report)
		}
	},
}

func printStatus(r statusReport) {
	fmt.Printf("\n%s campussync status\n\n", ui.RenderAccent("●"))

	if r.Online {
		fmt.Printf("   Remote:      %s\n", ui.RenderPass("reachable"))
	} else {
		fmt.Printf("   Remote:      %s\n", ui.RenderWarn("unreachable"))
	}
	if r.LastSyncedAt != nil {
		fmt.Printf("   Last sync:   %s\n", r.LastSyncedAt.Local().Format(time.RFC1123))
	} else {
		fmt.Printf("   Last sync:   %s\n", ui.RenderMuted("never"))
	}
	if r.LastError != "" {
		fmt.Printf("   Last error:  %s\n", ui.RenderFail(r.LastError))
	}

	fmt.Printf("\n   Local records:\n")
	for _, c := range schema.Collections() {
		fmt.Printf("     %-16s %d\n", c, r.Records[string(c)])
	}

	if len(r.Runs) == 0 {
		fmt.Println()
		return
	}
	fmt.Printf("\n   Recent syncs:\n")
	for _, run := range r.Runs {
		mark := ui.RenderPass("✓")
		if run.Error != "" {
			mark = ui.RenderFail("✗")
		}
		fmt.Printf("     %s %s  %5d records  %v\n",
			mark,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Records,
			run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
		)
	}
	fmt.Println()
}

func init() {
	statusCmd.Flags().StringP("format", "f", "text", "Output format: text, json or yaml")
	statusCmd.Flags().Int("runs", 5, "Number of recent sync runs to show")
	rootCmd.AddCommand(statusCmd)
}
