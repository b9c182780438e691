package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/danmuck/schemakit/internal/schema"
)

// MongoConfig locates the collection.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// Mongo stores documents in one MongoDB collection with a unique index on
// schemaId.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// OpenMongo connects, verifies the server, and ensures the schemaId index.
func OpenMongo(ctx context.Context, cfg MongoConfig) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("store: connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("store: ping mongo: %w", err)
	}
	m := &Mongo{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}
	_, err = m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: schema.FieldID, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("store: ensure schemaId index: %w", err)
	}
	return m, nil
}

var _ Store = (*Mongo)(nil)

func (m *Mongo) Insert(ctx context.Context, doc schema.Document) error {
	id, err := docID(doc)
	if err != nil {
		return err
	}
	if _, err := m.coll.InsertOne(ctx, bson.M(doc)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("store: insert %s: %w", id, err)
	}
	return nil
}

func (m *Mongo) FindOne(ctx context.Context, schemaID, userID string) (schema.Document, error) {
	var raw bson.M
	opts := options.FindOne().SetProjection(bson.M{schema.FieldStoreID: 0})
	err := m.coll.FindOne(ctx, scopeFilter(schemaID, userID), opts).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find %s: %w", schemaID, err)
	}
	doc, _ := normalizeBSON(raw).(map[string]any)
	return schema.Document(doc), nil
}

func (m *Mongo) UpdateOne(ctx context.Context, schemaID, userID string, set schema.Document) error {
	res, err := m.coll.UpdateOne(ctx, scopeFilter(schemaID, userID), setUpdate(set))
	if err != nil {
		return fmt.Errorf("store: update %s: %w", schemaID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func scopeFilter(schemaID, userID string) bson.M {
	filter := bson.M{schema.FieldID: schemaID}
	if userID != "" {
		filter[schema.FieldUserID] = userID
	}
	return filter
}

func setUpdate(set schema.Document) bson.M {
	return bson.M{"$set": bson.M(withoutKeys(set))}
}

// normalizeBSON converts driver types into the plain shapes JSON decoding
// would produce.
func normalizeBSON(v any) any {
	switch x := v.(type) {
	case bson.M:
		return normalizeMap(x)
	case map[string]any:
		return normalizeMap(x)
	case bson.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	case bson.A:
		return normalizeSlice(x)
	case []any:
		return normalizeSlice(x)
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.ObjectID:
		return x.Hex()
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	default:
		return v
	}
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeBSON(v)
	}
	return out
}

func normalizeSlice(s []any) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = normalizeBSON(v)
	}
	return out
}
