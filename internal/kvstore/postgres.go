package kvstore

import (
	"database/sql"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pkg/errors"
)

const createStateTable = `
CREATE TABLE IF NOT EXISTS core_state (
	key   TEXT PRIMARY KEY,
	value BYTEA NOT NULL
)`

// PostgresStore persists blobs in a single key/value table. Each Put is an
// upsert, so a row is always replaced whole.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to PostgreSQL and ensures the state table exists.
func NewPostgresStore(dataSourceName string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, errors.Wrapf(ErrStoreUnavailable, "connect: %v", err)
	}

	if _, err := db.Exec(createStateTable); err != nil {
		db.Close()
		return nil, errors.Wrapf(ErrStoreUnavailable, "create state table: %v", err)
	}

	return &PostgresStore{db: db}, nil
}

// Get returns the blob stored under key, or nil if nothing is stored.
func (s *PostgresStore) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.Get(&value, `SELECT value FROM core_state WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(ErrStoreUnavailable, "get %s: %v", key, err)
	}
	return value, nil
}

// Put replaces the blob stored under key.
func (s *PostgresStore) Put(key string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO core_state (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value)
	if err != nil {
		return errors.Wrapf(ErrStoreUnavailable, "put %s: %v", key, err)
	}
	return nil
}

// Delete removes the blob stored under key.
func (s *PostgresStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM core_state WHERE key = $1`, key); err != nil {
		return errors.Wrapf(ErrStoreUnavailable, "delete %s: %v", key, err)
	}
	return nil
}

// Close releases the underlying database connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
