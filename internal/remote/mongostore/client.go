package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoDatabase adapts *mongo.Database to Database.
type mongoDatabase struct {
	db *mongo.Database
}

func (d *mongoDatabase) Collection(name string) Collection {
	return &mongoCollection{d.db.Collection(name)}
}

func (d *mongoDatabase) Ping(ctx context.Context) error {
	return d.db.Client().Ping(ctx, nil)
}

// mongoCollection adapts *mongo.Collection to Collection.
type mongoCollection struct {
	*mongo.Collection
}

func (c *mongoCollection) BulkWrite(
	ctx context.Context,
	models []mongo.WriteModel,
	opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error) {
	result, err := c.Collection.BulkWrite(ctx, models, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to perform BulkWrite: %w", err)
	}
	return result, nil
}

// Connect creates a client for uri and returns a Store over the named
// database. The driver connects lazily, so Connect succeeds while the server
// is unreachable; use Ping to check. The returned Store owns the client and
// Close releases it.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	store := New(&mongoDatabase{db: client.Database(database)})
	store.client = client
	return store, nil
}
