package schema

import "time"

// SyncRun is one full-sync attempt, kept in the local sync history.
type SyncRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Records    int
	Error      string // empty on success
}

// Succeeded reports whether the run completed without error.
func (r SyncRun) Succeeded() bool {
	return r.Error == ""
}
