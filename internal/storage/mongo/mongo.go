// Package mongo stores the ledger as a single MongoDB document per namespace.
// Updates replace the document conditionally on its version, so two writers
// can never both commit on top of the same state.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bankdash/internal/storage"
)

const (
	defaultDatabase   = "bankdash"
	defaultCollection = "kv"
	defaultNamespace  = "ledger"
	maxRetries        = 10
)

// Document is the persisted shape. Values hold JSON-encoded store values.
type Document struct {
	ID        string            `bson:"_id"`
	Version   int64             `bson:"version"`
	Values    map[string]string `bson:"values"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

// ---- Abstractions for testability ----

// DocumentStore is the subset of collection operations the store needs.
type DocumentStore interface {
	// Load returns the document with the given id, found=false if absent.
	Load(ctx context.Context, id string) (Document, bool, error)
	// Replace swaps the document if its stored version equals expected.
	Replace(ctx context.Context, doc Document, expected int64) (bool, error)
	// Insert creates the document; ok=false if it already exists.
	Insert(ctx context.Context, doc Document) (bool, error)
}

// MongoCollection adapts *mongo.Collection to DocumentStore.
type MongoCollection struct {
	*mongo.Collection
}

func (c *MongoCollection) Load(ctx context.Context, id string) (Document, bool, error) {
	var doc Document
	err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("failed to perform FindOne: %w", err)
	}
	return doc, true, nil
}

func (c *MongoCollection) Replace(ctx context.Context, doc Document, expected int64) (bool, error) {
	res, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": expected}, doc)
	if err != nil {
		return false, fmt.Errorf("failed to perform ReplaceOne: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (c *MongoCollection) Insert(ctx context.Context, doc Document) (bool, error) {
	_, err := c.Collection.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to perform InsertOne: %w", err)
	}
	return true, nil
}

type Config struct {
	URI        string
	Database   string
	Collection string
	Namespace  string
}

type Store struct {
	docs      DocumentStore
	namespace string
	client    *mongo.Client
	now       func() time.Time
}

// Connect dials MongoDB, pings it and returns a store over the configured collection.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo store: uri is required")
	}
	if cfg.Database == "" {
		cfg.Database = defaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = defaultCollection
	}

	slog.DebugContext(ctx, "Attempting to connect to MongoDB", "database", cfg.Database)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	slog.InfoContext(ctx, "Successfully established connection to MongoDB", "database", cfg.Database, "collection", cfg.Collection)

	s := New(&MongoCollection{client.Database(cfg.Database).Collection(cfg.Collection)}, cfg.Namespace)
	s.client = client
	return s, nil
}

// New builds a store over any DocumentStore.
func New(docs DocumentStore, namespace string) *Store {
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &Store{docs: docs, namespace: namespace, now: time.Now}
}

func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	doc, found, err := s.docs.Load(ctx, s.namespace)
	if err != nil || !found {
		return false, err
	}
	raw, ok := doc.Values[key]
	if !ok {
		return false, nil
	}
	return true, storage.Decode(key, []byte(raw), dst)
}

func (s *Store) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		doc, exists, err := s.docs.Load(ctx, s.namespace)
		if err != nil {
			return err
		}
		staged := storage.NewStaging(func(key string) ([]byte, bool, error) {
			raw, ok := doc.Values[key]
			return []byte(raw), ok, nil
		})
		if err := fn(staged); err != nil {
			return err
		}
		if !staged.Dirty() {
			return nil
		}

		next := Document{
			ID:        s.namespace,
			Version:   doc.Version + 1,
			Values:    make(map[string]string, len(doc.Values)+2),
			UpdatedAt: s.now().UTC(),
		}
		for k, v := range doc.Values {
			next.Values[k] = v
		}
		_ = staged.Writes(func(key string, raw []byte) error {
			next.Values[key] = string(raw)
			return nil
		})

		var ok bool
		if exists {
			ok, err = s.docs.Replace(ctx, next, doc.Version)
		} else {
			ok, err = s.docs.Insert(ctx, next)
		}
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		slog.DebugContext(ctx, "Mongo update conflict, retrying", "attempt", attempt+1, "version", doc.Version)
	}
	return storage.ErrConflict
}

func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
