package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestMemoryStore_UpsertMerge(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	t1 := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	store.SetClock(fixedClock(t1))

	if err := store.UpsertMerge(ctx, "students", "student_1", map[string]any{
		"firstName": "Amani",
		"classId":   int64(1),
		"localId":   int64(1),
	}); err != nil {
		t.Fatalf("UpsertMerge() failed: %v", err)
	}

	// A later partial write only touches the fields it names.
	t2 := t1.Add(time.Minute)
	store.SetClock(fixedClock(t2))
	if err := store.UpsertMerge(ctx, "students", "student_1", map[string]any{
		"classId": int64(2),
	}); err != nil {
		t.Fatalf("UpsertMerge() failed: %v", err)
	}

	doc, ok := store.Get("students", "student_1")
	if !ok {
		t.Fatal("document not stored")
	}
	if doc["firstName"] != "Amani" {
		t.Errorf("firstName = %v, want preserved", doc["firstName"])
	}
	if doc["classId"] != int64(2) {
		t.Errorf("classId = %v, want 2", doc["classId"])
	}
	if got := doc[SyncedAtField].(time.Time); !got.Equal(t2) {
		t.Errorf("syncedAt = %v, want %v", got, t2)
	}
	if store.Len("students") != 1 {
		t.Errorf("expected 1 document, got %d", store.Len("students"))
	}
}

func TestMemoryStore_IgnoresCallerSyncedAt(t *testing.T) {
	store := NewMemoryStore()
	serverTime := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	store.SetClock(fixedClock(serverTime))

	clientTime := time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)
	err := store.UpsertMerge(context.Background(), "notices", "notice_1", map[string]any{
		"title":       "Closed Friday",
		SyncedAtField: clientTime,
	})
	if err != nil {
		t.Fatalf("UpsertMerge() failed: %v", err)
	}

	doc, _ := store.Get("notices", "notice_1")
	if got := doc[SyncedAtField].(time.Time); !got.Equal(serverTime) {
		t.Errorf("syncedAt = %v, want server time %v", got, serverTime)
	}
}

func TestMemoryStore_DeleteIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.UpsertMerge(ctx, "exams", "exam_1", map[string]any{"name": "Midterm"})

	if err := store.Delete(ctx, "exams", "exam_1"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if err := store.Delete(ctx, "exams", "exam_1"); err != nil {
		t.Errorf("second Delete() failed: %v", err)
	}
	if err := store.Delete(ctx, "unknown", "x_1"); err != nil {
		t.Errorf("Delete() in empty collection failed: %v", err)
	}
	if _, ok := store.Get("exams", "exam_1"); ok {
		t.Error("document still present after delete")
	}
}

func TestMemoryBatch_Limit(t *testing.T) {
	store := NewMemoryStore()
	b := store.Batch()

	for i := 0; i < MaxBatchOps; i++ {
		if err := b.Set("attendance", "attendance_x", map[string]any{"i": i}); err != nil {
			t.Fatalf("Set() #%d failed: %v", i, err)
		}
	}
	if err := b.Set("attendance", "attendance_x", nil); !errors.Is(err, ErrBatchFull) {
		t.Errorf("expected ErrBatchFull, got %v", err)
	}
	if b.Len() != MaxBatchOps {
		t.Errorf("Len() = %d, want %d", b.Len(), MaxBatchOps)
	}
}

func TestMemoryBatch_Commit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	b := store.Batch()

	_ = b.Set("students", "student_1", map[string]any{"firstName": "Amani"})
	_ = b.Set("staff", "staff_1", map[string]any{"name": "Juma"})

	if store.Len("students") != 0 {
		t.Fatal("batch writes visible before commit")
	}

	if err := b.Commit(ctx); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	if store.Len("students") != 1 || store.Len("staff") != 1 {
		t.Error("batch writes not applied")
	}

	if err := b.Commit(ctx); !errors.Is(err, ErrBatchCommitted) {
		t.Errorf("expected ErrBatchCommitted, got %v", err)
	}
	if err := b.Set("staff", "staff_2", nil); !errors.Is(err, ErrBatchCommitted) {
		t.Errorf("expected ErrBatchCommitted from Set, got %v", err)
	}
}

func TestMemoryBatch_CanceledContext(t *testing.T) {
	store := NewMemoryStore()
	b := store.Batch()
	_ = b.Set("students", "student_1", map[string]any{"firstName": "Amani"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Commit(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if store.Len("students") != 0 {
		t.Error("canceled batch was applied")
	}
}

func TestMergePaths(t *testing.T) {
	doc := map[string]any{
		"firstName":   "Amani",
		SyncedAtField: "client value",
		"guardian": map[string]any{
			"name":    "Neema",
			"contact": bson.M{"phone": "+255700000000"},
		},
		"tags":  []string{"a"},
		"extra": map[string]any{},
	}

	got := MergePaths(doc)
	want := map[string]any{
		"firstName":              "Amani",
		"guardian.name":          "Neema",
		"guardian.contact.phone": "+255700000000",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("MergePaths()[%q] = %v, want %v", k, got[k], v)
		}
	}
	if _, ok := got[SyncedAtField]; ok {
		t.Error("syncedAt must be dropped")
	}
	if _, ok := got["guardian"]; ok {
		t.Error("nested document should be flattened, not set whole")
	}
	if _, ok := got["tags"].([]string); !ok {
		t.Errorf("slices are leaves, got %#v", got["tags"])
	}
	if _, ok := got["extra"]; !ok {
		t.Error("empty nested document should be kept as a leaf")
	}
	if _, ok := doc[SyncedAtField]; !ok {
		t.Error("input was modified")
	}
}

func TestMemoryStore_MergesNestedDocuments(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	// Only the remote copy knows the guardian's email.
	_ = store.UpsertMerge(ctx, "students", "student_1", map[string]any{
		"guardian": map[string]any{"email": "neema@example.com", "name": "Old"},
	})
	if err := store.UpsertMerge(ctx, "students", "student_1", map[string]any{
		"guardian": bson.M{"name": "Neema", "phone": "+255700000000"},
	}); err != nil {
		t.Fatalf("UpsertMerge() failed: %v", err)
	}

	doc, _ := store.Get("students", "student_1")
	guardian, ok := doc["guardian"].(map[string]any)
	if !ok {
		t.Fatalf("guardian = %#v, want nested document", doc["guardian"])
	}
	if guardian["email"] != "neema@example.com" {
		t.Errorf("remote-only guardian.email was lost: %v", guardian)
	}
	if guardian["name"] != "Neema" || guardian["phone"] != "+255700000000" {
		t.Errorf("guardian not updated: %v", guardian)
	}

	// Get hands out copies.
	guardian["email"] = "changed"
	again, _ := store.Get("students", "student_1")
	if again["guardian"].(map[string]any)["email"] != "neema@example.com" {
		t.Error("Get must not expose stored nested documents")
	}
}
