package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv_store (
	bucket     TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (bucket, key)
);
CREATE INDEX IF NOT EXISTS idx_kv_store_bucket ON kv_store(bucket);
`

// SQLiteStore persists buckets in a single local database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens or creates the database at path and ensures the
// schema exists.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// A single writer avoids SQLITE_BUSY under concurrent instance loops.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Bucket(name string) Bucket {
	return &sqliteBucket{db: s.db, name: name}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqliteBucket struct {
	db   *sql.DB
	name string
}

func (b *sqliteBucket) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := b.db.QueryRowContext(ctx,
		"SELECT value FROM kv_store WHERE bucket = ? AND key = ?",
		b.name, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s/%s: %w", b.name, key, err)
	}
	return value, true, nil
}

const sqliteUpsert = `
INSERT INTO kv_store (bucket, key, value, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (bucket, key)
DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

func (b *sqliteBucket) Set(ctx context.Context, key, value string) error {
	if _, err := b.db.ExecContext(ctx, sqliteUpsert, b.name, key, value); err != nil {
		return fmt.Errorf("writing %s/%s: %w", b.name, key, err)
	}
	return nil
}

func (b *sqliteBucket) SetMany(ctx context.Context, values map[string]string) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for k, v := range values {
		if _, err := tx.ExecContext(ctx, sqliteUpsert, b.name, k, v); err != nil {
			return fmt.Errorf("writing %s/%s: %w", b.name, k, err)
		}
	}
	return tx.Commit()
}

func (b *sqliteBucket) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM kv_store WHERE bucket = ? AND key = ?", b.name, k,
		); err != nil {
			return fmt.Errorf("deleting %s/%s: %w", b.name, k, err)
		}
	}
	return tx.Commit()
}

func (b *sqliteBucket) Keys(ctx context.Context) ([]string, error) {
	rows, err := b.db.QueryContext(ctx,
		"SELECT key FROM kv_store WHERE bucket = ? ORDER BY key", b.name)
	if err != nil {
		return nil, fmt.Errorf("listing keys in %s: %w", b.name, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (b *sqliteBucket) Clear(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx,
		"DELETE FROM kv_store WHERE bucket = ?", b.name); err != nil {
		return fmt.Errorf("clearing %s: %w", b.name, err)
	}
	return nil
}
