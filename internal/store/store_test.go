package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/danmuck/schemakit/internal/schema"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	lite, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "schemas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = lite.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": lite,
	}
}

func sampleDoc(id, owner string) schema.Document {
	return schema.Document{
		schema.FieldID:     id,
		schema.FieldUserID: owner,
		schema.FieldType:   "product",
		schema.FieldName:   "Widget",
		"dynamic":          true,
		"productData": map[string]any{
			"name":  "Widget",
			"price": "9.99",
		},
	}
}

func TestStoreContract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Insert(ctx, sampleDoc("abc123", "user_1")))

			got, err := s.FindOne(ctx, "abc123", "user_1")
			require.NoError(t, err)
			assert.Equal(t, "Widget", got[schema.FieldName])
			assert.Equal(t, true, got["dynamic"])

			_, err = s.FindOne(ctx, "abc123", "user_2")
			assert.ErrorIs(t, err, ErrNotFound, "other owners must not see the document")

			unscoped, err := s.FindOne(ctx, "abc123", "")
			require.NoError(t, err)
			assert.Equal(t, "user_1", unscoped[schema.FieldUserID])

			_, err = s.FindOne(ctx, "missing", "user_1")
			assert.ErrorIs(t, err, ErrNotFound)

			assert.ErrorIs(t, s.Insert(ctx, sampleDoc("abc123", "user_3")), ErrDuplicateID)
			assert.ErrorIs(t, s.Insert(ctx, schema.Document{schema.FieldName: "x"}), ErrMissingID)
			assert.NoError(t, s.Ping(ctx))
		})
	}
}

func TestStoreUpdateMergesTopLevelFields(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Insert(ctx, sampleDoc("upd1", "user_1")))

			err := s.UpdateOne(ctx, "upd1", "user_1", schema.Document{
				schema.FieldName:   "Renamed",
				schema.FieldUserID: "thief",
				schema.FieldID:     "other",
			})
			require.NoError(t, err)

			got, err := s.FindOne(ctx, "upd1", "user_1")
			require.NoError(t, err)
			assert.Equal(t, "Renamed", got[schema.FieldName])
			assert.Equal(t, "upd1", got[schema.FieldID])
			assert.Equal(t, "user_1", got[schema.FieldUserID])
			assert.Equal(t, "9.99", got["productData"].(map[string]any)["price"], "untouched fields survive")

			assert.ErrorIs(t, s.UpdateOne(ctx, "upd1", "user_2", schema.Document{"dynamic": false}), ErrNotFound)
			assert.ErrorIs(t, s.UpdateOne(ctx, "nope", "user_1", schema.Document{"dynamic": false}), ErrNotFound)
		})
	}
}

func TestMemoryConcurrentInsertsKeepIdsUnique(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.Insert(context.Background(), sampleDoc("same", "u"))
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch err {
		case nil:
			ok++
		case ErrDuplicateID:
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 49, dup)
	assert.Equal(t, 1, m.Len())
}

func TestNewID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		id, err := NewID()
		require.NoError(t, err)
		require.Len(t, id, IDLength)
		assert.Regexp(t, `^[A-Za-z0-9_-]+$`, id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 500)
}

func TestOpenDrivers(t *testing.T) {
	s, err := Open(context.Background(), Config{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(context.Background(), Config{
		Driver:  DriverSQLite,
		DSN:     filepath.Join(t.TempDir(), "open.db"),
		Timeout: time.Second,
	})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	_, err = Open(context.Background(), Config{Driver: "cassandra"})
	assert.Error(t, err)
}

func TestMongoFilters(t *testing.T) {
	assert.Equal(t, bson.M{"schemaId": "abc"}, scopeFilter("abc", ""))
	assert.Equal(t, bson.M{"schemaId": "abc", "userId": "u1"}, scopeFilter("abc", "u1"))

	update := setUpdate(schema.Document{"name": "n", "userId": "x", "_id": "y"})
	assert.Equal(t, bson.M{"$set": bson.M{"name": "n"}}, update)
}

func TestNormalizeBSON(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	raw := bson.M{
		"createdAt": primitive.NewDateTimeFromTime(at),
		"count":     int32(3),
		"big":       int64(7),
		"nested":    bson.D{{Key: "a", Value: bson.A{"x", int32(1)}}},
	}
	got := normalizeBSON(raw).(map[string]any)
	assert.Equal(t, at, got["createdAt"])
	assert.Equal(t, float64(3), got["count"])
	assert.Equal(t, float64(7), got["big"])
	assert.Equal(t, map[string]any{"a": []any{"x", float64(1)}}, got["nested"])
}
