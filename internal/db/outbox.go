package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vempat/vempat/internal/models"
)

// Append inserts an outbox entry and returns its assigned id. The id passed
// in entry is ignored.
func (db *DB) Append(ctx context.Context, entry models.QueueEntry) (int64, error) {
	var id int64
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = appendEntry(ctx, tx, entry)
		return err
	})
	return id, err
}

// ListAll returns every outbox entry in ascending id order.
func (db *DB) ListAll(ctx context.Context) ([]models.QueueEntry, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, op, store, entity_key, payload, created_at, attempts, next_attempt_at, failed, last_error
		FROM sync_queue
		ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query sync queue: %w", err)
	}
	defer rows.Close()

	var entries []models.QueueEntry
	for rows.Next() {
		var (
			e       models.QueueEntry
			op      string
			coll    string
			key     sql.NullString
			payload sql.NullString
		)
		if err := rows.Scan(&e.ID, &op, &coll, &key, &payload, &e.CreatedAt, &e.Attempts, &e.NextAttemptAt, &e.Failed, &e.LastError); err != nil {
			return nil, fmt.Errorf("scan sync queue row: %w", err)
		}
		e.Op = models.Op(op)
		e.Store = models.Collection(coll)
		e.Key = key.String
		if payload.Valid && payload.String != "" && payload.String != "null" {
			rec, err := models.DecodeRecord(e.Store, []byte(payload.String))
			if err != nil {
				// Keep the entry visible; the reconciler will fail it and it
				// ends up quarantined for an operator to look at.
				slog.Warn("sync queue: undecodable payload", "id", e.ID, "store", coll, "err", err)
			} else {
				e.Payload = rec
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return entries, nil
}

// UpdateByID patches retry metadata of one entry. Missing ids are ignored.
func (db *DB) UpdateByID(ctx context.Context, id int64, patch models.QueuePatch) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		return patchEntry(ctx, tx, id, patch)
	})
}

// DeleteByID removes one entry. Missing ids are ignored.
func (db *DB) DeleteByID(ctx context.Context, id int64) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		return deleteEntry(ctx, tx, id)
	})
}

// ApplyBatch applies all mutations in one transaction.
func (db *DB) ApplyBatch(ctx context.Context, muts []models.OutboxMutation) error {
	if len(muts) == 0 {
		return nil
	}
	return db.inTx(ctx, func(tx *sql.Tx) error {
		for _, m := range muts {
			var err error
			if m.Delete {
				err = deleteEntry(ctx, tx, m.ID)
			} else {
				err = patchEntry(ctx, tx, m.ID, m.Patch)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// CountPendingEntries returns the number of non-failed outbox entries.
func (db *DB) CountPendingEntries(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue WHERE failed = 0`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}

func appendEntry(ctx context.Context, q querier, e models.QueueEntry) (int64, error) {
	if !e.Op.Valid() {
		return 0, fmt.Errorf("invalid op %q", string(e.Op))
	}
	if !e.Store.Valid() {
		return 0, fmt.Errorf("unknown collection %q", string(e.Store))
	}

	var payload sql.NullString
	if e.Payload != nil {
		data, err := json.Marshal(e.Payload)
		if err != nil {
			return 0, fmt.Errorf("marshal payload: %w", err)
		}
		payload = sql.NullString{String: string(data), Valid: true}
	}
	var key sql.NullString
	if e.Key != "" {
		key = sql.NullString{String: e.Key, Valid: true}
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO sync_queue (op, store, entity_key, payload, created_at, attempts, next_attempt_at, failed, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(e.Op), string(e.Store), key, payload, e.CreatedAt, e.Attempts, e.NextAttemptAt, e.Failed, e.LastError)
	if err != nil {
		return 0, fmt.Errorf("append sync entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	slog.Debug("sync entry appended", "id", id, "op", e.Op, "store", e.Store, "key", e.Key)
	return id, nil
}

func patchEntry(ctx context.Context, q querier, id int64, p models.QueuePatch) error {
	var (
		sets []string
		args []any
	)
	if p.Attempts != nil {
		sets = append(sets, "attempts = ?")
		args = append(args, *p.Attempts)
	}
	if p.NextAttemptAt != nil {
		sets = append(sets, "next_attempt_at = ?")
		args = append(args, *p.NextAttemptAt)
	}
	if p.Failed != nil {
		sets = append(sets, "failed = ?")
		args = append(args, *p.Failed)
	}
	if p.LastError != nil {
		sets = append(sets, "last_error = ?")
		args = append(args, *p.LastError)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := q.ExecContext(ctx, `UPDATE sync_queue SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update sync entry %d: %w", id, err)
	}
	return nil
}

func deleteEntry(ctx context.Context, q querier, id int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete sync entry %d: %w", id, err)
	}
	return nil
}
