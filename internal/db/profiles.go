package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vempat/vempat/internal/models"
	"github.com/vempat/vempat/internal/store"
)

// PutProfile caches a user profile, replacing any previous copy.
func (db *DB) PutProfile(ctx context.Context, p models.CachedProfile) error {
	if p.UID == "" {
		return errors.New("profile uid is required")
	}
	if p.CachedAt.IsZero() {
		p.CachedAt = time.Now().UTC()
	}
	return db.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO profiles (uid, email, name, role, password_hash, cached_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(uid) DO UPDATE SET
				email = excluded.email,
				name = excluded.name,
				role = excluded.role,
				password_hash = CASE WHEN excluded.password_hash = '' THEN profiles.password_hash ELSE excluded.password_hash END,
				cached_at = excluded.cached_at`,
			p.UID, normalizeEmail(p.Email), p.Name, string(p.Role), p.PasswordHash, p.CachedAt)
		if err != nil {
			return fmt.Errorf("cache profile %s: %w", p.UID, err)
		}
		return nil
	})
}

// ProfileByID returns the cached profile or store.ErrNotFound.
func (db *DB) ProfileByID(ctx context.Context, uid string) (*models.CachedProfile, error) {
	if uid == "" {
		return nil, store.ErrNotFound
	}
	return db.scanProfile(ctx, `WHERE uid = ?`, uid)
}

// ProfileByEmail returns the cached profile for email (case-insensitive).
func (db *DB) ProfileByEmail(ctx context.Context, email string) (*models.CachedProfile, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, store.ErrNotFound
	}
	return db.scanProfile(ctx, `WHERE email = ? ORDER BY cached_at DESC LIMIT 1`, email)
}

func (db *DB) scanProfile(ctx context.Context, where string, arg any) (*models.CachedProfile, error) {
	var (
		p    models.CachedProfile
		role string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT uid, email, name, role, password_hash, cached_at FROM profiles `+where, arg,
	).Scan(&p.UID, &p.Email, &p.Name, &role, &p.PasswordHash, &p.CachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	p.Role = models.Role(role)
	return &p, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
