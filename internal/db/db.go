// Package db is the durable local store: record collections, the sync outbox
// and the cached profile table, all kept in one SQLite file.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vempat/vempat/internal/store"
	_ "modernc.org/sqlite"
)

const dbFile = "vempat.db"

// DB wraps the database connection
type DB struct {
	conn    *sql.DB
	baseDir string
}

var _ store.Store = (*DB)(nil)

// Open opens (creating if needed) the database under baseDir and runs any
// pending migrations.
func Open(baseDir string) (*DB, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dbPath := filepath.Join(baseDir, dbFile)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db, err := newDB(conn, baseDir)
	if err != nil {
		conn.Close()
		return nil, err
	}
	slog.Debug("database opened", "path", dbPath)
	return db, nil
}

// OpenConn wraps an already opened connection, e.g. an in-memory database in
// tests. No cross-process write lock is taken for such databases.
func OpenConn(conn *sql.DB) (*DB, error) {
	return newDB(conn, "")
}

// pragmas run on every new database. Optional ones are best effort; an
// in-memory database, for one, reports "memory" for journal_mode.
var pragmas = []struct {
	stmt     string
	required bool
}{
	{"PRAGMA journal_mode=WAL", true},
	{"PRAGMA busy_timeout=5000", true},
	{"PRAGMA synchronous=NORMAL", false},
}

func newDB(conn *sql.DB, baseDir string) (*DB, error) {
	// One connection keeps PRAGMAs and :memory: databases consistent;
	// SQLite serializes writers regardless.
	conn.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := conn.Exec(p.stmt); err != nil && p.required {
			return nil, fmt.Errorf("%s: %w", p.stmt, err)
		}
	}
	if _, err := conn.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	db := &DB{conn: conn, baseDir: baseDir}
	if _, err := db.RunMigrations(); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// Close closes the database
func (db *DB) Close() error {
	return db.conn.Close()
}

// withWriteLock runs fn while holding the cross-process write lock.
// In-memory databases have no directory and skip it.
func (db *DB) withWriteLock(ctx context.Context, fn func() error) error {
	if db.baseDir == "" {
		return fn()
	}
	l, err := lockDir(ctx, db.baseDir, lockWait)
	if err != nil {
		return err
	}
	defer l.Unlock()
	return fn()
}

// inTx runs fn inside a write-locked transaction.
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return db.withWriteLock(ctx, func() error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
}

func (db *DB) columnExists(table, column string) (bool, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	return n > 0, err
}

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
