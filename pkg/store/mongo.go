package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/perisponge/stormflow/pkg/errors"
)

// MongoStore is a MongoDB-backed run archive for serve deployments.
type MongoStore struct {
	client *mongo.Client
	runs   *mongo.Collection
}

// MongoConfig configures the MongoDB connection.
type MongoConfig struct {
	URI        string // e.g. "mongodb://localhost:27017"
	Database   string // defaults to "stormflow"
	Collection string // defaults to "runs"
}

// NewMongoStore connects to MongoDB and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.Database == "" {
		cfg.Database = "stormflow"
	}
	if cfg.Collection == "" {
		cfg.Collection = "runs"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to %s", cfg.URI)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "ping %s", cfg.URI)
	}

	return &MongoStore{
		client: client,
		runs:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Save persists a run.
func (s *MongoStore) Save(ctx context.Context, run *Run) error {
	if _, err := s.runs.InsertOne(ctx, run); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "save run %s", run.ID)
	}
	return nil
}

// Get retrieves a run by ID.
func (s *MongoStore) Get(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.runs.FindOne(ctx, bson.M{"_id": id}).Decode(&run)
	if err == mongo.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeRunNotFound, "run %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "get run %s", id)
	}
	return &run, nil
}

// List returns the most recent runs, newest first.
func (s *MongoStore) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.runs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list runs")
	}
	defer cur.Close(ctx)

	var runs []*Run
	if err := cur.All(ctx, &runs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode runs")
	}
	return runs, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
