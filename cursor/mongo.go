package cursor

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"
)

// Mongo stores one document per subscription key in a "cursors" collection.
type Mongo struct {
	coll *mongo.Collection
}

// NewMongo connects to the database named in the mongodb:// URL
// ("tonwatch" when the URL names none).
func NewMongo(ctx context.Context, url string) (*Mongo, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("cursor/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("cursor/mongo: ping: %w", err)
	}

	dbName := "tonwatch"
	if cs, err := connstring.ParseAndValidate(url); err == nil && cs.Database != "" {
		dbName = cs.Database
	}
	return &Mongo{coll: client.Database(dbName).Collection("cursors")}, nil
}

// Load returns the saved position for key.
func (m *Mongo) Load(ctx context.Context, key string) (Position, bool, error) {
	var pos Position
	err := m.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&pos)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Position{}, false, nil
	}
	if err != nil {
		return Position{}, false, fmt.Errorf("cursor/mongo: find %s: %w", key, err)
	}
	return pos, true, nil
}

// Save upserts the position for key.
func (m *Mongo) Save(ctx context.Context, key string, pos Position) error {
	_, err := m.coll.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{
			"seqno":      pos.SeqNo,
			"lt":         pos.LT,
			"hash":       pos.Hash,
			"updated_at": pos.UpdatedAt,
		}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("cursor/mongo: upsert %s: %w", key, err)
	}
	return nil
}

// Close disconnects the client.
func (m *Mongo) Close() error {
	return m.coll.Database().Client().Disconnect(context.Background())
}
