package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
)

// Migration defines a database migration
type Migration struct {
	Version     int
	Description string
	Run         func(db *DB) error
}

// Migrations is the list of all migrations in order
var Migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Run:         func(db *DB) error { return nil },
	},
	{
		Version:     2,
		Description: "Keep last handler error on sync queue entries",
		Run: func(db *DB) error {
			exists, err := db.columnExists("sync_queue", "last_error")
			if err != nil {
				return err
			}
			if exists {
				return nil
			}
			_, err = db.conn.Exec(`ALTER TABLE sync_queue ADD COLUMN last_error TEXT NOT NULL DEFAULT ''`)
			return err
		},
	},
}

// GetSchemaVersion returns the current schema version from the database
func (db *DB) GetSchemaVersion() (int, error) {
	var version string
	err := db.conn.QueryRow("SELECT value FROM schema_info WHERE key = 'version'").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(version)
	if err != nil {
		return 0, fmt.Errorf("parse schema version %q: %w", version, err)
	}
	return v, nil
}

func (db *DB) setSchemaVersion(version int) error {
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)`, strconv.Itoa(version))
	return err
}

// RunMigrations runs all pending migrations and returns how many were applied
func (db *DB) RunMigrations() (int, error) {
	current, err := db.GetSchemaVersion()
	if err != nil {
		return 0, fmt.Errorf("get schema version: %w", err)
	}

	applied := 0
	for _, m := range Migrations {
		if m.Version <= current {
			continue
		}
		if err := m.Run(db); err != nil {
			return applied, fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if err := db.setSchemaVersion(m.Version); err != nil {
			return applied, fmt.Errorf("set schema version %d: %w", m.Version, err)
		}
		slog.Debug("migration applied", "version", m.Version, "desc", m.Description)
		applied++
	}

	if current > schemaVersion {
		slog.Warn("database schema is newer than this binary", "db", current, "binary", schemaVersion)
	}
	return applied, nil
}
