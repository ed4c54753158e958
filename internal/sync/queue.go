// Package sync drains the local outbox against a remote reconciler with
// exponential backoff and quarantine of entries that keep failing.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vempat/vempat/internal/models"
	"github.com/vempat/vempat/internal/store"
)

const (
	DefaultMaxAttempts = 6
	DefaultBaseDelay   = time.Second
	DefaultMaxBackoff  = time.Hour
)

// ErrEntryNotFound is returned by operator actions on an unknown entry id.
var ErrEntryNotFound = errors.New("queue entry not found")

// Options configures retry behaviour. Zero values take the defaults.
type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxBackoff  time.Duration
	// Now is the clock; tests replace it.
	Now     func() time.Time
	Metrics *Metrics
}

// Queue is the sync queue over an outbox.
type Queue struct {
	outbox      store.Outbox
	maxAttempts int
	baseDelay   time.Duration
	maxBackoff  time.Duration
	now         func() time.Time
	metrics     *Metrics
}

// DrainResult summarizes one Process call.
type DrainResult struct {
	Processed   int `json:"processed"`
	Succeeded   int `json:"succeeded"`
	Retried     int `json:"retried"`
	Quarantined int `json:"quarantined"`
	// Skipped counts entries not attempted: not yet due, already failed, or
	// left over after cancellation.
	Skipped int `json:"skipped"`
}

// New returns a queue over outbox.
func New(outbox store.Outbox, opts Options) *Queue {
	q := &Queue{
		outbox:      outbox,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		maxBackoff:  opts.MaxBackoff,
		now:         opts.Now,
		metrics:     opts.Metrics,
	}
	if q.maxAttempts <= 0 {
		q.maxAttempts = DefaultMaxAttempts
	}
	if q.baseDelay <= 0 {
		q.baseDelay = DefaultBaseDelay
	}
	if q.maxBackoff <= 0 {
		q.maxBackoff = DefaultMaxBackoff
	}
	if q.now == nil {
		q.now = time.Now
	}
	return q
}

// MaxAttempts returns the attempt budget before quarantine.
func (q *Queue) MaxAttempts() int { return q.maxAttempts }

// Backoff returns min(ceiling, base*2^(attempts-1)). attempts below 1 are
// treated as 1.
func Backoff(attempts int, base, ceiling time.Duration) time.Duration {
	d := base
	for i := 1; i < attempts; i++ {
		if d > ceiling/2 {
			return ceiling
		}
		d *= 2
	}
	if d > ceiling {
		return ceiling
	}
	return d
}

// NewEntry builds a fresh pending entry stamped with the queue clock. The
// store assigns the id on Append.
func (q *Queue) NewEntry(op models.Op, c models.Collection, key string, payload models.Record) models.QueueEntry {
	now := q.now().UnixMilli()
	return models.QueueEntry{
		Op:            op,
		Store:         c,
		Key:           key,
		Payload:       payload,
		CreatedAt:     now,
		NextAttemptAt: now,
	}
}

// Enqueue appends a new entry to the outbox. It never touches the network.
func (q *Queue) Enqueue(ctx context.Context, op models.Op, c models.Collection, key string, payload models.Record) (int64, error) {
	id, err := q.outbox.Append(ctx, q.NewEntry(op, c, key, payload))
	if err != nil {
		return 0, fmt.Errorf("enqueue %s %s/%s: %w", op, c, key, err)
	}
	return id, nil
}

// Process drains every due entry through r, one at a time in ascending id
// order, then applies all outcomes to the outbox in one batch.
//
// Cancelling ctx stops the drain before the next entry; the entry in flight
// finishes and the outcomes gathered so far are still written.
func (q *Queue) Process(ctx context.Context, r Reconciler) (DrainResult, error) {
	start := time.Now()
	res, err := q.process(ctx, r)
	q.metrics.observeDrain(res, time.Since(start), err)
	if st, serr := q.Stats(context.WithoutCancel(ctx)); serr == nil {
		q.metrics.setDepth(st)
	}
	return res, err
}

func (q *Queue) process(ctx context.Context, r Reconciler) (DrainResult, error) {
	var res DrainResult

	all, err := q.outbox.ListAll(ctx)
	if err != nil {
		return res, fmt.Errorf("snapshot outbox: %w", err)
	}

	nowMs := q.now().UnixMilli()
	due := make([]models.QueueEntry, 0, len(all))
	for _, e := range all {
		if e.Due(nowMs) {
			due = append(due, e)
		}
	}
	res.Skipped = len(all) - len(due)
	if len(due) == 0 {
		return res, nil
	}

	// Entries already started must not be interrupted half way.
	work := context.WithoutCancel(ctx)

	var muts []models.OutboxMutation
	for i, e := range due {
		if ctx.Err() != nil {
			res.Skipped += len(due) - i
			slog.Debug("sync: drain cancelled", "remaining", len(due)-i)
			break
		}
		res.Processed++

		err := apply(work, r, e)
		if err == nil {
			res.Succeeded++
			muts = append(muts, models.OutboxMutation{ID: e.ID, Delete: true})
			slog.Debug("sync: entry applied", "id", e.ID, "op", e.Op, "store", e.Store, "key", e.Key)
			continue
		}

		m := q.failure(e, err)
		if *m.Patch.Failed {
			res.Quarantined++
			slog.Warn("sync: entry quarantined", "id", e.ID, "op", e.Op, "store", e.Store, "key", e.Key, "attempts", *m.Patch.Attempts, "err", err)
		} else {
			res.Retried++
			slog.Debug("sync: entry failed", "id", e.ID, "attempts", *m.Patch.Attempts, "next", *m.Patch.NextAttemptAt, "err", err)
		}
		muts = append(muts, m)
	}

	if err := q.outbox.ApplyBatch(work, muts); err != nil {
		return res, fmt.Errorf("apply drain results: %w", err)
	}
	return res, nil
}

// failure computes the retry patch for e after a failed attempt.
func (q *Queue) failure(e models.QueueEntry, cause error) models.OutboxMutation {
	attempts := e.Attempts + 1
	msg := cause.Error()
	patch := models.QueuePatch{Attempts: &attempts, LastError: &msg}

	failed := attempts >= q.maxAttempts
	patch.Failed = &failed
	next := e.NextAttemptAt
	if !failed {
		candidate := q.now().Add(Backoff(attempts, q.baseDelay, q.maxBackoff)).UnixMilli()
		if candidate > next {
			next = candidate
		}
	}
	patch.NextAttemptAt = &next
	return models.OutboxMutation{ID: e.ID, Patch: patch}
}

// apply runs r for one entry. A panicking reconciler counts as a failure.
func apply(ctx context.Context, r Reconciler, e models.QueueEntry) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("reconciler panic: %v", p)
		}
	}()
	return r.Apply(ctx, e)
}

// Stats returns total, pending and failed counts. It is a pure read.
func (q *Queue) Stats(ctx context.Context) (models.QueueStats, error) {
	all, err := q.outbox.ListAll(ctx)
	if err != nil {
		return models.QueueStats{}, fmt.Errorf("read outbox: %w", err)
	}
	var st models.QueueStats
	st.Total = len(all)
	for _, e := range all {
		if e.Failed {
			st.Failed++
		}
	}
	st.Pending = st.Total - st.Failed
	return st, nil
}

// List returns every entry in id order.
func (q *Queue) List(ctx context.Context) ([]models.QueueEntry, error) {
	all, err := q.outbox.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read outbox: %w", err)
	}
	return all, nil
}

// Failed returns the quarantined entries in id order.
func (q *Queue) Failed(ctx context.Context) ([]models.QueueEntry, error) {
	all, err := q.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.QueueEntry
	for _, e := range all {
		if e.Failed {
			out = append(out, e)
		}
	}
	return out, nil
}

// RetryFailed returns quarantined entries to pending with a fresh attempt
// budget. With no ids every failed entry is requeued. It returns how many
// entries were reset.
func (q *Queue) RetryFailed(ctx context.Context, ids ...int64) (int, error) {
	failed, err := q.Failed(ctx)
	if err != nil {
		return 0, err
	}
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	now := q.now().UnixMilli()
	var muts []models.OutboxMutation
	for _, e := range failed {
		if len(ids) > 0 && !want[e.ID] {
			continue
		}
		attempts, notFailed, next, msg := 0, false, now, ""
		muts = append(muts, models.OutboxMutation{ID: e.ID, Patch: models.QueuePatch{
			Attempts: &attempts, Failed: &notFailed, NextAttemptAt: &next, LastError: &msg,
		}})
	}
	if len(ids) > 0 && len(muts) != len(ids) {
		return 0, fmt.Errorf("retry %v: %w", ids, ErrEntryNotFound)
	}
	if err := q.outbox.ApplyBatch(ctx, muts); err != nil {
		return 0, fmt.Errorf("requeue failed entries: %w", err)
	}
	if len(muts) > 0 {
		slog.Info("sync: failed entries requeued", "count", len(muts))
	}
	return len(muts), nil
}

// Discard drops one entry without reconciling it.
func (q *Queue) Discard(ctx context.Context, id int64) error {
	all, err := q.List(ctx)
	if err != nil {
		return err
	}
	for _, e := range all {
		if e.ID == id {
			if err := q.outbox.DeleteByID(ctx, id); err != nil {
				return fmt.Errorf("discard entry %d: %w", id, err)
			}
			slog.Info("sync: entry discarded", "id", id, "op", e.Op, "store", e.Store, "key", e.Key)
			return nil
		}
	}
	return fmt.Errorf("discard %d: %w", id, ErrEntryNotFound)
}
