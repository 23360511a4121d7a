package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLite is a SnapshotStore backed by a SQLite database.
//
// It expects an *sql.DB that uses a SQLite driver. The caller is
// responsible for importing the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLite struct {
	db *sql.DB
}

var _ SnapshotStore = (*SQLite)(nil)

// NewSQLite creates the snapshot table if needed and returns the store.
func NewSQLite(ctx context.Context, db *sql.DB) (*SQLite, error) {
	s := &SQLite{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to init snapshot schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS context_snapshots (
			id TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
	)
	return err
}

// Save inserts or replaces the snapshot stored under id.
func (s *SQLite) Save(ctx context.Context, id string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO context_snapshots (id, data, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		id, data,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", id, err)
	}
	return nil
}

// Load returns the snapshot stored under id or ErrNotFound.
func (s *SQLite) Load(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM context_snapshots WHERE id = ?`, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", id, err)
	}
	return data, nil
}

// Delete removes the snapshot or returns ErrNotFound.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM context_snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
