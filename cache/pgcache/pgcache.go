// Package pgcache stores cache entries in PostgreSQL so several hosts can share one authorizer token.
package pgcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deploymenttheory/go-api-authorizer-token/cache"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a PostgreSQL backed cache.Cache.
type Store struct {
	DB  DBTX
	now func() time.Time
}

var _ cache.Cache = (*Store)(nil)

// New returns a Store using db.
func New(db DBTX) *Store {
	return &Store{DB: db, now: time.Now}
}

// SetClock overrides the time source; intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Connect opens a connection pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgcache: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgcache: ping: %w", err)
	}
	return pool, nil
}

const createSchema = `-- name: Create token cache table
CREATE TABLE IF NOT EXISTS token_cache (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL
)`

// EnsureSchema creates the token_cache table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.DB.Exec(ctx, createSchema); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const fetchEntry = `-- name: Fetch unexpired entry
SELECT value
FROM token_cache
WHERE key = $1 AND expires_at > $2`

// Fetch implements cache.Cache. Expired rows are treated as missing.
func (s *Store) Fetch(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.DB.QueryRow(ctx, fetchEntry, key, s.now()).Scan(&value)

	switch {
	case err == nil:
		return value, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("db error: %w", err)
	}
}

const saveEntry = `-- name: Upsert entry
INSERT INTO token_cache (key, value, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`

// Save implements cache.Cache.
func (s *Store) Save(ctx context.Context, key string, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return cache.ErrInvalidTTL
	}
	if _, err := s.DB.Exec(ctx, saveEntry, key, value, s.now().Add(ttl)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const purgeExpired = `-- name: Delete expired entries
DELETE FROM token_cache
WHERE expires_at <= $1`

// PurgeExpired deletes expired rows and reports how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.DB.Exec(ctx, purgeExpired, s.now())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}
