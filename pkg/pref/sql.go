package pref

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLKV stores values in the preferences table.
type SQLKV struct {
	DB *sqlx.DB
}

const schema = `CREATE TABLE IF NOT EXISTS preferences (
	pref_key   TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// Migrate creates the preferences table if needed.
func (s SQLKV) Migrate(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, schema)
	return err
}

func (s SQLKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.DB.GetContext(ctx, &value, s.DB.Rebind(`SELECT value FROM preferences WHERE pref_key = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (s SQLKV) Put(ctx context.Context, key string, value []byte) error {
	q := s.DB.Rebind(`INSERT INTO preferences (pref_key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (pref_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	_, err := s.DB.ExecContext(ctx, q, key, string(value), time.Now().UTC())
	return err
}
