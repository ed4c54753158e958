package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vempat/vempat/internal/models"
	"github.com/vempat/vempat/internal/store"
)

// Put stores the full record, replacing any previous value with the same id.
func (db *DB) Put(ctx context.Context, c models.Collection, rec models.Record) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		return putRecord(ctx, tx, c, rec)
	})
}

// Get returns the record or store.ErrNotFound.
func (db *DB) Get(ctx context.Context, c models.Collection, id string) (models.Record, error) {
	return getRecord(ctx, db.conn, c, id)
}

// GetAll returns every record of c ordered by id.
func (db *DB) GetAll(ctx context.Context, c models.Collection) ([]models.Record, error) {
	return getAllRecords(ctx, db.conn, c)
}

// GetAllByIndex returns records of c whose indexed field equals value.
func (db *DB) GetAllByIndex(ctx context.Context, c models.Collection, index, value string) ([]models.Record, error) {
	return getRecordsByIndex(ctx, db.conn, c, index, value)
}

// Delete removes the record. Deleting a missing id is not an error.
func (db *DB) Delete(ctx context.Context, c models.Collection, id string) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		return deleteRecord(ctx, tx, c, id)
	})
}

// Update runs fn in one transaction; record and outbox writes made through
// the Writer commit together.
func (db *DB) Update(ctx context.Context, fn func(w store.Writer) error) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		return fn(&txWriter{tx: tx})
	})
}

// txWriter is the store.Writer bound to an open transaction
type txWriter struct {
	tx *sql.Tx
}

func (w *txWriter) Get(ctx context.Context, c models.Collection, id string) (models.Record, error) {
	return getRecord(ctx, w.tx, c, id)
}

func (w *txWriter) GetAll(ctx context.Context, c models.Collection) ([]models.Record, error) {
	return getAllRecords(ctx, w.tx, c)
}

func (w *txWriter) GetAllByIndex(ctx context.Context, c models.Collection, index, value string) ([]models.Record, error) {
	return getRecordsByIndex(ctx, w.tx, c, index, value)
}

func (w *txWriter) Put(ctx context.Context, c models.Collection, rec models.Record) error {
	return putRecord(ctx, w.tx, c, rec)
}

func (w *txWriter) Delete(ctx context.Context, c models.Collection, id string) error {
	return deleteRecord(ctx, w.tx, c, id)
}

func (w *txWriter) Append(ctx context.Context, entry models.QueueEntry) (int64, error) {
	return appendEntry(ctx, w.tx, entry)
}

func putRecord(ctx context.Context, q querier, c models.Collection, rec models.Record) error {
	if err := store.CheckCollection(c, rec); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", c, rec.RecordID(), err)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO records (collection, id, data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(c), rec.RecordID(), string(data), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", c, rec.RecordID(), err)
	}
	return nil
}

func getRecord(ctx context.Context, q querier, c models.Collection, id string) (models.Record, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT data FROM records WHERE collection = ? AND id = ?`, string(c), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", c, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", c, id, err)
	}
	return models.DecodeRecord(c, []byte(data))
}

func getAllRecords(ctx context.Context, q querier, c models.Collection) ([]models.Record, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unknown collection %q", string(c))
	}
	rows, err := q.QueryContext(ctx, `SELECT data FROM records WHERE collection = ? ORDER BY id`, string(c))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c, err)
	}
	return scanRecords(rows, c)
}

func getRecordsByIndex(ctx context.Context, q querier, c models.Collection, index, value string) ([]models.Record, error) {
	field, ok := c.IndexField(index)
	if !ok {
		return nil, fmt.Errorf("collection %s has no index %q", c, index)
	}
	// The path is a literal so the partial expression indexes in schema.go apply.
	query := fmt.Sprintf(`SELECT data FROM records WHERE collection = ? AND json_extract(data, '$.%s') = ? ORDER BY id`, field)
	rows, err := q.QueryContext(ctx, query, string(c), value)
	if err != nil {
		return nil, fmt.Errorf("query %s by %s: %w", c, index, err)
	}
	return scanRecords(rows, c)
}

func scanRecords(rows *sql.Rows, c models.Collection) ([]models.Record, error) {
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", c, err)
		}
		rec, err := models.DecodeRecord(c, []byte(data))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func deleteRecord(ctx context.Context, q querier, c models.Collection, id string) error {
	if !c.Valid() {
		return fmt.Errorf("unknown collection %q", string(c))
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM records WHERE collection = ? AND id = ?`, string(c), id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", c, id, err)
	}
	return nil
}
