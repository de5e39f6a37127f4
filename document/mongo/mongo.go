package mongo

import (
	"context"

	"github.com/iidesho/auditflow/document"
	"github.com/iidesho/bragi/sbragi"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var log = sbragi.WithLocalScope(sbragi.LevelInfo)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ document.Store = &Store{}

// Connect opens a client against uri and checks it with a ping.
// uri=mongodb://localhost:27017
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	opts := options.Client().ApplyURI(uri)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongo")
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		client.Disconnect(ctx)
		return nil, errors.Wrap(err, "pinging mongo")
	}
	log.Info("connected to mongo", "database", database)
	return New(client, database), nil
}

func New(client *mongo.Client, database string) *Store {
	return &Store{
		client: client,
		db:     client.Database(database),
	}
}

func (s *Store) InsertMany(ctx context.Context, collection string, docs []any) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := s.db.Collection(collection).InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		return document.Unavailable(errors.Wrapf(err, "inserting %d documents into %s", len(docs), collection))
	}
	return nil
}

// Count is used by operators and tests to check what reached a collection.
func (s *Store) Count(ctx context.Context, collection string, filter any) (int64, error) {
	return s.db.Collection(collection).CountDocuments(ctx, filter)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
