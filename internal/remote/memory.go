package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is an in-process DocStore for tests and dry runs.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]map[string]json.RawMessage
}

var _ DocStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]map[string]json.RawMessage)}
}

func (m *MemoryStore) Merge(ctx context.Context, collection, id string, fields Fields) error {
	if collection == "" || id == "" {
		return fmt.Errorf("merge: collection and id are required")
	}
	encoded := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("merge %s/%s field %s: %w", collection, id, k, err)
		}
		encoded[k] = data
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	coll := m.docs[collection]
	if coll == nil {
		coll = make(map[string]map[string]json.RawMessage)
		m.docs[collection] = coll
	}
	doc := coll[id]
	if doc == nil {
		doc = make(map[string]json.RawMessage, len(encoded))
		coll[id] = doc
	}
	for k, v := range encoded {
		doc[k] = v
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string) (Fields, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return decodeRaw(doc)
}

func (m *MemoryStore) List(ctx context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Document, 0, len(m.docs[collection]))
	for id, doc := range m.docs[collection] {
		f, err := decodeRaw(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, Document{ID: id, Fields: f})
	}
	sortDocs(out)
	return out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[collection][id]; !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	delete(m.docs[collection], id)
	return nil
}

func decodeRaw(doc map[string]json.RawMessage) (Fields, error) {
	f := make(Fields, len(doc))
	for k, raw := range doc {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode field %s: %w", k, err)
		}
		f[k] = v
	}
	return f, nil
}
