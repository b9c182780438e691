package store

import (
	"context"
	"fmt"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/danmuck/schemakit/internal/schema"
)

// Memory keeps encoded documents in a map. Documents are stored in their JSON
// form so callers never share mutable state with the store.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Insert(_ context.Context, doc schema.Document) error {
	id, err := docID(doc)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", id, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; ok {
		return ErrDuplicateID
	}
	m.docs[id] = raw
	return nil
}

func (m *Memory) FindOne(_ context.Context, schemaID, userID string) (schema.Document, error) {
	m.mu.RLock()
	raw, ok := m.docs[schemaID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	doc, err := decodeDoc(raw)
	if err != nil {
		return nil, err
	}
	if !owns(doc, userID) {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (m *Memory) UpdateOne(_ context.Context, schemaID, userID string, set schema.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.docs[schemaID]
	if !ok {
		return ErrNotFound
	}
	doc, err := decodeDoc(raw)
	if err != nil {
		return err
	}
	if !owns(doc, userID) {
		return ErrNotFound
	}
	next, err := json.Marshal(doc.Merge(withoutKeys(set)))
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", schemaID, err)
	}
	m.docs[schemaID] = next
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// Len returns the number of stored documents.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func decodeDoc(raw []byte) (schema.Document, error) {
	var doc schema.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("store: decode document: %w", err)
	}
	return doc, nil
}
