package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/campusdesk/campussync/internal/schema"
	"github.com/campusdesk/campussync/internal/ui"
)

var recordCmd = &cobra.Command{
	Use:     "record",
	GroupID: "data",
	Short:   "Write local records",
}

var recordPutCmd = &cobra.Command{
	Use:   "put <collection> <json-file|->",
	Short: "Insert or update a local record",
	Long: `Write a record to the local database from a JSON document.

A document without "id" is inserted and gets a new local id. A document with
"id" replaces that record. The record is then pushed if the remote store is
reachable; otherwise it waits for the next sync.

Example:
  campussync record put students student.json
  echo '{"name":"Grade 3","academicYear":"2026","createdAt":"2026-01-10T08:00:00Z"}' | campussync record put classes -`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		c, err := schema.ParseCollection(args[0])
		if err != nil {
			fatalf("%v", err)
		}

		data, err := readInput(args[1])
		if err != nil {
			fatalf("%v", err)
		}

		e, err := schema.New(c)
		if err != nil {
			fatalf("%v", err)
		}
		if err := json.Unmarshal(data, e); err != nil {
			fatalf("invalid %s document: %v", c, err)
		}
		if s, ok := e.(*schema.Student); ok {
			s.SetDefaults()
		}

		a, err := openApp(ctx, cfg)
		if err != nil {
			fatalf("%v", err)
		}
		defer a.Close()

		verb := "Updated"
		if e.LocalID() == 0 {
			verb = "Inserted"
			_, err = a.db.Insert(ctx, e)
		} else {
			err = a.db.Update(ctx, e)
		}
		if err != nil {
			a.Close()
			fatalf("%v", err)
		}
		a.engine.NoteLocalChange(1)

		docID := schema.DocID(c, e.LocalID())
		fmt.Printf("%s %s %s\n", ui.RenderPass("✓"), verb, docID)

		if !a.monitor.IsOnline() {
			fmt.Printf("   %s\n", ui.RenderMuted("offline: will sync later"))
			return
		}
		if a.engine.SyncSingleRecord(ctx, e) {
			fmt.Printf("   pushed to remote\n")
		} else {
			fmt.Printf("   %s\n", ui.RenderWarn("push failed: will sync later"))
		}
	},
}

var recordDeleteCmd = &cobra.Command{
	Use:   "delete <collection> <id>",
	Short: "Delete a local record and its remote copy",
	Long: `Delete a record from the local database, then remove its remote copy.

The local delete always happens. If the remote store is unreachable the remote
copy is left in place and the command fails.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		c, id := parseRecordRef(args[0], args[1])

		a, err := openApp(ctx, cfg)
		if err != nil {
			fatalf("%v", err)
		}
		defer a.Close()

		if err := a.db.Delete(ctx, c, id); err != nil {
			a.Close()
			fatalf("%v", err)
		}
		fmt.Printf("%s Deleted local %s\n", ui.RenderPass("✓"), schema.DocID(c, id))

		if !a.monitor.IsOnline() {
			a.Close()
			fatalf("remote store unreachable; remote copy of %s not deleted", schema.DocID(c, id))
		}
		if err := a.engine.DeleteRemote(ctx, c, id); err != nil {
			a.Close()
			fatalf("%v", err)
		}
		fmt.Printf("%s Deleted remote %s\n", ui.RenderPass("✓"), schema.DocID(c, id))
	},
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func init() {
	recordCmd.AddCommand(recordPutCmd)
	recordCmd.AddCommand(recordDeleteCmd)
	rootCmd.AddCommand(recordCmd)
}
