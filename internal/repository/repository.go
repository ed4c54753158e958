// Package repository is the entry point for every business mutation. Each
// write lands in the local store and the sync outbox in one transaction; no
// method here ever talks to the network.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/vempat/vempat/internal/models"
	"github.com/vempat/vempat/internal/store"
	"github.com/vempat/vempat/internal/sync"
)

var (
	// ErrInsufficientStock is returned when a sale or stock-out exceeds stock on hand.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidTransition is returned for purchase order status changes that
	// are not allowed, such as receiving a cancelled order.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError wraps struct validation failures.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "invalid record: " + e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// Options configures a Repository. Zero values take the defaults.
type Options struct {
	Now   func() time.Time
	NewID func() string
}

// Repository performs dual writes against a store and its sync queue.
type Repository struct {
	records  store.Records
	queue    *sync.Queue
	validate *validator.Validate
	now      func() time.Time
	newID    func() string
}

// New returns a repository writing to records and enqueueing through queue.
// The queue must sit on the same store as records for writes to be atomic.
func New(records store.Records, queue *sync.Queue, opts Options) *Repository {
	r := &Repository{
		records:  records,
		queue:    queue,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}
	return r
}

// Queue exposes the underlying sync queue.
func (r *Repository) Queue() *sync.Queue { return r.queue }

// SyncNow drains the queue once through rec.
func (r *Repository) SyncNow(ctx context.Context, rec sync.Reconciler) (sync.DrainResult, error) {
	return r.queue.Process(ctx, rec)
}

// QueueInfo returns aggregate queue health.
func (r *Repository) QueueInfo(ctx context.Context) (models.QueueStats, error) {
	return r.queue.Stats(ctx)
}

func (r *Repository) check(rec models.Record) error {
	if err := r.validate.Struct(rec); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// save writes rec and its queue entry. Nothing is queued if the put fails,
// and the put is rolled back if the append fails.
func (r *Repository) save(ctx context.Context, op models.Op, rec models.Record) error {
	if err := r.check(rec); err != nil {
		return err
	}
	err := r.records.Update(ctx, func(w store.Writer) error {
		return r.stage(ctx, w, op, rec)
	})
	if err != nil {
		return err
	}
	slog.Debug("repository: saved", "op", op, "collection", rec.Collection(), "id", rec.RecordID())
	return nil
}

// stage puts rec and appends the matching entry inside an open transaction.
func (r *Repository) stage(ctx context.Context, w store.Writer, op models.Op, rec models.Record) error {
	c := rec.Collection()
	if err := w.Put(ctx, c, rec); err != nil {
		return fmt.Errorf("save %s/%s: %w", c, rec.RecordID(), err)
	}
	if _, err := w.Append(ctx, r.queue.NewEntry(op, c, rec.RecordID(), rec)); err != nil {
		return fmt.Errorf("queue %s %s/%s: %w", op, c, rec.RecordID(), err)
	}
	return nil
}

// remove deletes the local record and queues a delete for the remote copy,
// even when the record was never synced.
func (r *Repository) remove(ctx context.Context, c models.Collection, id string) error {
	if id == "" {
		return errors.New("id is required")
	}
	err := r.records.Update(ctx, func(w store.Writer) error {
		if err := w.Delete(ctx, c, id); err != nil {
			return fmt.Errorf("delete %s/%s: %w", c, id, err)
		}
		if _, err := w.Append(ctx, r.queue.NewEntry(models.OpDelete, c, id, nil)); err != nil {
			return fmt.Errorf("queue delete %s/%s: %w", c, id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.Debug("repository: deleted", "collection", c, "id", id)
	return nil
}

// mustExist returns store.ErrNotFound (wrapped) when c/id is missing.
func (r *Repository) mustExist(ctx context.Context, c models.Collection, id string) error {
	if id == "" {
		return errors.New("id is required")
	}
	_, err := r.records.Get(ctx, c, id)
	return err
}

func getAs[T models.Record](ctx context.Context, rd store.Reader, c models.Collection, id string) (T, error) {
	var zero T
	rec, err := rd.Get(ctx, c, id)
	if err != nil {
		return zero, err
	}
	v, ok := rec.(T)
	if !ok {
		return zero, fmt.Errorf("%s/%s: unexpected record type %T", c, id, rec)
	}
	return v, nil
}

func listAs[T models.Record](recs []models.Record, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		if v, ok := rec.(T); ok {
			out = append(out, v)
		}
	}
	return out, nil
}
