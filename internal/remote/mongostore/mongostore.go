// Package mongostore implements remote.Store on MongoDB.
//
// Each collection maps to a MongoDB collection of the same name and each
// document id to _id. Upsert-merge is an UpdateOne with $set and upsert, so
// fields not mentioned by a write keep their stored values. syncedAt is set
// by the server through $currentDate. Nested documents are written through
// dotted paths, so their unmentioned fields survive too.
//
// A committed batch is not atomic. It is sent as one ordered BulkWrite per
// collection, and a failure leaves the writes before it applied. Every write
// is an idempotent merge of the current local record, so the next sync simply
// repeats the batch.
package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campusdesk/campussync/internal/remote"
)

// ---- Abstractions for Testability ----

// Collection is the subset of *mongo.Collection the store uses.
type Collection interface {
	UpdateOne(
		ctx context.Context,
		filter interface{},
		update interface{},
		opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(
		ctx context.Context,
		filter interface{},
		opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	BulkWrite(
		ctx context.Context,
		models []mongo.WriteModel,
		opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
}

// Database hands out collections and checks reachability.
type Database interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
}

// Store is a remote.Store backed by a MongoDB database.
type Store struct {
	db     Database
	client *mongo.Client
}

var _ remote.Store = (*Store)(nil)

// New creates a Store over an existing database handle.
func New(db Database) *Store {
	return &Store{db: db}
}

// mergeUpdate builds the update document for an upsert-merge of doc. Nested
// documents are set field by field through dotted paths, so a subdocument
// write keeps stored fields it does not mention.
func mergeUpdate(doc map[string]any) bson.M {
	update := bson.M{
		"$currentDate": bson.M{remote.SyncedAtField: true},
	}
	if set := remote.MergePaths(doc); len(set) > 0 {
		update["$set"] = bson.M(set)
	}
	return update
}

// UpsertMerge implements remote.Store.
func (s *Store) UpsertMerge(ctx context.Context, collection, id string, doc map[string]any) error {
	_, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id},
		mergeUpdate(doc),
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete implements remote.Store. A missing document is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Ping implements remote.Store.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return nil
}

// Batch implements remote.Store.
func (s *Store) Batch() remote.Batch {
	return &batch{db: s.db}
}

// Close disconnects the client when the store owns one.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}

type batch struct {
	db        Database
	order     []string
	models    map[string][]mongo.WriteModel
	size      int
	committed bool
}

func (b *batch) Set(collection, id string, doc map[string]any) error {
	if b.committed {
		return remote.ErrBatchCommitted
	}
	if b.size >= remote.MaxBatchOps {
		return fmt.Errorf("%w: %d operations", remote.ErrBatchFull, remote.MaxBatchOps)
	}
	if b.models == nil {
		b.models = make(map[string][]mongo.WriteModel)
	}
	if _, ok := b.models[collection]; !ok {
		b.order = append(b.order, collection)
	}

	model := mongo.NewUpdateOneModel().
		SetFilter(bson.M{"_id": id}).
		SetUpdate(mergeUpdate(doc)).
		SetUpsert(true)
	b.models[collection] = append(b.models[collection], model)
	b.size++
	return nil
}

func (b *batch) Len() int {
	return b.size
}

// Commit sends one ordered BulkWrite per collection, in the order the
// collections were first added. It stops at the first failing collection;
// earlier collections, and earlier writes of the failing one, stay applied.
func (b *batch) Commit(ctx context.Context) error {
	if b.committed {
		return remote.ErrBatchCommitted
	}
	b.committed = true

	for _, name := range b.order {
		models := b.models[name]
		_, err := b.db.Collection(name).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
		if err != nil {
			return fmt.Errorf("failed to perform bulk write for collection %s: %w", name, err)
		}
	}
	return nil
}
