package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vempat/vempat/internal/models"
	"github.com/vempat/vempat/internal/sync"
)

// DocReconciler mirrors queue entries onto a DocStore.
type DocReconciler struct {
	Store DocStore
}

var _ sync.Reconciler = (*DocReconciler)(nil)

// NewReconciler returns a reconciler writing to s.
func NewReconciler(s DocStore) *DocReconciler {
	return &DocReconciler{Store: s}
}

// Apply merges create and update payloads into the remote document and
// removes the document for deletes. Deleting a document the remote never
// had succeeds.
func (r *DocReconciler) Apply(ctx context.Context, e models.QueueEntry) error {
	coll := e.Store.RemoteName()
	if e.Key == "" {
		return fmt.Errorf("entry %d has no key", e.ID)
	}

	switch e.Op {
	case models.OpCreate, models.OpUpdate:
		if e.Payload == nil {
			return fmt.Errorf("entry %d: %s without payload", e.ID, e.Op)
		}
		fields, err := ToFields(e.Payload)
		if err != nil {
			return fmt.Errorf("entry %d: %w", e.ID, err)
		}
		if err := r.Store.Merge(ctx, coll, e.Key, fields); err != nil {
			return fmt.Errorf("merge %s/%s: %w", coll, e.Key, err)
		}
		return nil
	case models.OpDelete:
		err := r.Store.Delete(ctx, coll, e.Key)
		if errors.Is(err, ErrNotFound) {
			slog.Debug("remote: delete of missing document", "collection", coll, "id", e.Key)
			return nil
		}
		if err != nil {
			return fmt.Errorf("delete %s/%s: %w", coll, e.Key, err)
		}
		return nil
	default:
		return fmt.Errorf("entry %d: unknown op %q", e.ID, e.Op)
	}
}
