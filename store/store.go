package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no snapshot exists for the given id.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotStore saves and loads context snapshots by id. Save overwrites an
// existing snapshot.
type SnapshotStore interface {
	Save(ctx context.Context, id string, data []byte) error
	Load(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}
