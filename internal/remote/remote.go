// Package remote holds the adapters to the authoritative document store: an
// HTTP client for vempat-remote, a Redis store and an in-memory store, plus
// the reconciler that mirrors sync queue entries onto any of them.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Sentinel errors shared by every DocStore.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// Fields is a document body keyed by top-level field name.
type Fields map[string]any

// Document is one remote document.
type Document struct {
	ID     string `json:"id"`
	Fields Fields `json:"fields"`
}

// DocStore is a remote document database addressed by remote collection
// name and document id.
type DocStore interface {
	// Merge upserts fields into the document, leaving other fields as they are.
	Merge(ctx context.Context, collection, id string, fields Fields) error
	Get(ctx context.Context, collection, id string) (Fields, error)
	List(ctx context.Context, collection string) ([]Document, error)
	// Delete removes the document; a missing document yields ErrNotFound.
	Delete(ctx context.Context, collection, id string) error
}

// ToFields converts a record or any JSON-encodable value to Fields.
func ToFields(v any) (Fields, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	var f Fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("payload is not an object: %w", err)
	}
	return f, nil
}

// Decode unmarshals f into dst.
func (f Fields) Decode(dst any) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func sortDocs(docs []Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
}
