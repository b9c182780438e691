// Package store persists schema documents in a single collection keyed by
// schemaId and scoped by owner.
//
// Backends treat documents as opaque: they enforce id uniqueness and owner
// scoping, and apply shallow $set-style updates. Meaning belongs to the
// schema and validation packages.
package store

import (
	"context"
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/danmuck/schemakit/internal/schema"
)

var (
	ErrNotFound    = errors.New("store: document not found")
	ErrDuplicateID = errors.New("store: duplicate schema id")
	ErrMissingID   = errors.New("store: document has no schema id")
)

// Store is the document collection the service reads and writes.
type Store interface {
	// Insert adds doc. It fails with ErrDuplicateID when doc's schemaId exists.
	Insert(ctx context.Context, doc schema.Document) error
	// FindOne returns the document with schemaID owned by userID. An empty
	// userID matches any owner.
	FindOne(ctx context.Context, schemaID, userID string) (schema.Document, error)
	// UpdateOne replaces the top-level fields in set on the matched document.
	UpdateOne(ctx context.Context, schemaID, userID string, set schema.Document) error
	Ping(ctx context.Context) error
	Close() error
}

// IDLength is the length of generated schema ids.
const IDLength = 10

// NewID returns a fresh URL-safe schema id.
func NewID() (string, error) {
	id, err := gonanoid.New(IDLength)
	if err != nil {
		return "", fmt.Errorf("store: generate id: %w", err)
	}
	return id, nil
}

func docID(doc schema.Document) (string, error) {
	id, _ := doc[schema.FieldID].(string)
	if id == "" {
		return "", ErrMissingID
	}
	return id, nil
}

func docOwner(doc schema.Document) string {
	owner, _ := doc[schema.FieldUserID].(string)
	return owner
}

// owns reports whether doc matches the userID scope.
func owns(doc schema.Document, userID string) bool {
	return userID == "" || docOwner(doc) == userID
}

// withoutKeys drops the fields that identify a document; they never change
// after insert.
func withoutKeys(set schema.Document) schema.Document {
	out := make(schema.Document, len(set))
	for k, v := range set {
		switch k {
		case schema.FieldID, schema.FieldUserID, schema.FieldStoreID:
			continue
		}
		out[k] = v
	}
	return out
}
