package sync

import (
	"context"

	"github.com/vempat/vempat/internal/models"
)

// Reconciler mirrors one queue entry to the remote document store.
//
// Create and update entries merge the payload into the remote document
// store.RemoteName()/key, leaving fields absent from the payload untouched.
// Delete entries remove that document; a document that is already gone counts
// as success. Any returned error is treated as a failed attempt, there is no
// distinction between transient and permanent failures.
type Reconciler interface {
	Apply(ctx context.Context, e models.QueueEntry) error
}

// HandlerFunc adapts a plain function to Reconciler.
type HandlerFunc func(ctx context.Context, e models.QueueEntry) error

// Apply calls f(ctx, e).
func (f HandlerFunc) Apply(ctx context.Context, e models.QueueEntry) error {
	return f(ctx, e)
}
