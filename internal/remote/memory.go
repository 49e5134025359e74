package remote

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is a Store held in process memory. It applies the same merge
// rules as the MongoDB store and is used by the memory driver and in tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]map[string]any
	now  func() time.Time
}

// NewMemoryStore creates an empty store stamping writes with time.Now.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]map[string]map[string]any),
		now:  time.Now,
	}
}

// SetClock replaces the store clock used for SyncedAtField.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// UpsertMerge implements Store.
func (s *MemoryStore) UpsertMerge(ctx context.Context, collection, id string, doc map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.merge(collection, id, doc)
	return nil
}

// merge must be called with mu held.
func (s *MemoryStore) merge(collection, id string, doc map[string]any) {
	coll, ok := s.docs[collection]
	if !ok {
		coll = make(map[string]map[string]any)
		s.docs[collection] = coll
	}

	stored, ok := coll[id]
	if !ok {
		stored = make(map[string]any, len(doc)+1)
		coll[id] = stored
	}
	for path, v := range MergePaths(doc) {
		if nested, ok := asDocument(v); ok {
			v = copyDocument(nested)
		}
		setPath(stored, path, v)
	}
	stored[SyncedAtField] = s.now().UTC()
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs[collection], id)
	return nil
}

// Ping implements Store. The in-process store is always reachable.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Batch implements Store.
func (s *MemoryStore) Batch() Batch {
	return &memoryBatch{store: s}
}

// Get returns a deep copy of a stored document.
func (s *MemoryStore) Get(collection, id string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.docs[collection][id]
	if !ok {
		return nil, false
	}
	return copyDocument(stored), true
}

// Len returns the number of documents in a collection.
func (s *MemoryStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[collection])
}

// IDs returns the document ids of a collection in no particular order.
func (s *MemoryStore) IDs(collection string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.docs[collection]))
	for id := range s.docs[collection] {
		ids = append(ids, id)
	}
	return ids
}

type memoryOp struct {
	collection string
	id         string
	doc        map[string]any
}

type memoryBatch struct {
	store     *MemoryStore
	ops       []memoryOp
	committed bool
}

func (b *memoryBatch) Set(collection, id string, doc map[string]any) error {
	if b.committed {
		return ErrBatchCommitted
	}
	if len(b.ops) >= MaxBatchOps {
		return fmt.Errorf("%w: %d operations", ErrBatchFull, MaxBatchOps)
	}
	b.ops = append(b.ops, memoryOp{collection: collection, id: id, doc: doc})
	return nil
}

func (b *memoryBatch) Len() int {
	return len(b.ops)
}

// Commit applies every queued write under one lock, so readers never observe
// a partially applied batch.
func (b *memoryBatch) Commit(ctx context.Context) error {
	if b.committed {
		return ErrBatchCommitted
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b.committed = true
	if len(b.ops) == 0 {
		return nil
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for _, op := range b.ops {
		b.store.merge(op.collection, op.id, op.doc)
	}
	return nil
}
