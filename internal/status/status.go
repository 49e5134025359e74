// Package status holds the process-wide sync status and notifies observers
// of every change.
//
// A Tracker is created once by the composition root and shared by everything
// that needs to read or change the status. Observers always receive a copy of
// the full status, never a live reference and never a delta.
package status

import (
	"sync"
	"time"
)

// Status is a snapshot of the sync state.
type Status struct {
	IsSyncing      bool       `json:"isSyncing" yaml:"isSyncing"`
	LastSyncedAt   *time.Time `json:"lastSyncedAt,omitempty" yaml:"lastSyncedAt,omitempty"`
	PendingChanges int        `json:"pendingChanges" yaml:"pendingChanges"`
	Error          string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// clone returns a copy that shares no memory with s.
func (s Status) clone() Status {
	if s.LastSyncedAt != nil {
		t := *s.LastSyncedAt
		s.LastSyncedAt = &t
	}
	return s
}

// Observer is called with the full status after every change. Observers run
// synchronously on the goroutine that made the change and must not change the
// status themselves; reading it with Snapshot is fine.
type Observer func(Status)

type subscription struct {
	id int
	fn Observer
}

// Tracker owns a Status and its observers. It is safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	status    Status
	observers []subscription
	nextID    int

	// claimed is the pending count when the running sync began.
	claimed int

	// notifyMu keeps notifications in the same order as the changes that
	// caused them.
	notifyMu sync.Mutex
}

// NewTracker creates a tracker with an empty status.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Snapshot returns a copy of the current status.
func (t *Tracker) Snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status.clone()
}

// Subscribe registers fn for every subsequent change and returns a function
// that removes it. Calling the returned function more than once is harmless.
func (t *Tracker) Subscribe(fn Observer) (unsubscribe func()) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.observers = append(t.observers, subscription{id: id, fn: fn})
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			for i, sub := range t.observers {
				if sub.id == id {
					t.observers = append(t.observers[:i:i], t.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// update applies fn to the status and notifies observers if fn reports a change.
func (t *Tracker) update(fn func(s *Status) bool) bool {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	if !fn(&t.status) {
		t.mu.Unlock()
		return false
	}
	snapshot := t.status.clone()
	observers := make([]subscription, len(t.observers))
	copy(observers, t.observers)
	t.mu.Unlock()

	for _, sub := range observers {
		sub.fn(snapshot.clone())
	}
	return true
}

// TryBegin marks a full sync as started and clears the previous error.
// It returns false, changing nothing, if a sync is already running.
//
// The pending count at this point is claimed by the sync; changes noted
// while it runs are not.
func (t *Tracker) TryBegin() bool {
	return t.update(func(s *Status) bool {
		if s.IsSyncing {
			return false
		}
		s.IsSyncing = true
		s.Error = ""
		t.claimed = s.PendingChanges
		return true
	})
}

// Succeed ends a running sync successfully at the given time. Only the
// changes claimed by TryBegin are cleared: a write noted mid-sync may have
// landed after its collection was read, so it stays pending.
func (t *Tracker) Succeed(at time.Time) {
	t.update(func(s *Status) bool {
		s.IsSyncing = false
		s.LastSyncedAt = &at
		s.PendingChanges = max(s.PendingChanges-t.claimed, 0)
		s.Error = ""
		t.claimed = 0
		return true
	})
}

// Fail ends a running sync with an error. LastSyncedAt is left unchanged.
func (t *Tracker) Fail(err error) {
	msg := "sync failed"
	if err != nil {
		msg = err.Error()
	}
	t.update(func(s *Status) bool {
		s.IsSyncing = false
		s.Error = msg
		t.claimed = 0
		return true
	})
}

// AddPending adjusts the pending change count by delta, never going below
// zero. Observers are only notified when the count actually changes.
func (t *Tracker) AddPending(delta int) {
	t.update(func(s *Status) bool {
		n := s.PendingChanges + delta
		if n < 0 {
			n = 0
		}
		if n == s.PendingChanges {
			return false
		}
		s.PendingChanges = n
		return true
	})
}
