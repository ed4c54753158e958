// Package store declares the contracts of the durable local store. The SQLite
// implementation lives in internal/db and an in-memory one in internal/memstore.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/vempat/vempat/internal/models"
)

// ErrNotFound is returned when a record or profile does not exist locally.
var ErrNotFound = errors.New("not found")

// Reader reads records from named collections.
type Reader interface {
	Get(ctx context.Context, c models.Collection, id string) (models.Record, error)
	GetAll(ctx context.Context, c models.Collection) ([]models.Record, error)
	GetAllByIndex(ctx context.Context, c models.Collection, index, value string) ([]models.Record, error)
}

// Writer is the view of the store inside an Update transaction. Every call
// made through one Writer commits together or not at all.
type Writer interface {
	Reader
	Put(ctx context.Context, c models.Collection, rec models.Record) error
	Delete(ctx context.Context, c models.Collection, id string) error
	Append(ctx context.Context, entry models.QueueEntry) (int64, error)
}

// Records is the record side of the store.
type Records interface {
	Reader
	Put(ctx context.Context, c models.Collection, rec models.Record) error
	Delete(ctx context.Context, c models.Collection, id string) error
	// Update runs fn in a single transaction. If fn returns an error nothing
	// it wrote is kept.
	Update(ctx context.Context, fn func(w Writer) error) error
}

// Outbox is the ordered sync queue collection. Append assigns strictly
// increasing ids and never touches the network.
type Outbox interface {
	Append(ctx context.Context, entry models.QueueEntry) (int64, error)
	ListAll(ctx context.Context) ([]models.QueueEntry, error)
	UpdateByID(ctx context.Context, id int64, patch models.QueuePatch) error
	DeleteByID(ctx context.Context, id int64) error
	// ApplyBatch applies deletes and patches atomically.
	ApplyBatch(ctx context.Context, muts []models.OutboxMutation) error
}

// Profiles caches user identity for offline login.
type Profiles interface {
	PutProfile(ctx context.Context, p models.CachedProfile) error
	ProfileByID(ctx context.Context, uid string) (*models.CachedProfile, error)
	ProfileByEmail(ctx context.Context, email string) (*models.CachedProfile, error)
}

// Store is the full local store.
type Store interface {
	Records
	Outbox
	Profiles
	Close() error
}

// CheckCollection returns an error when rec does not belong to c.
func CheckCollection(c models.Collection, rec models.Record) error {
	if rec == nil {
		return errors.New("nil record")
	}
	if rec.Collection() != c {
		return fmt.Errorf("record of collection %s put into %s", rec.Collection(), c)
	}
	if rec.RecordID() == "" {
		return errors.New("record has empty id")
	}
	return nil
}
