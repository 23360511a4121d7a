package workflow

import (
	"context"
	"fmt"

	"github.com/hupe1980/stepflow/store"
)

// SaveContext snapshots c and stores it under c.ID().
func SaveContext(ctx context.Context, s store.SnapshotStore, c *Context) error {
	data, err := c.Snapshot()
	if err != nil {
		return err
	}
	if err := s.Save(ctx, c.ID(), data); err != nil {
		return fmt.Errorf("failed to persist context %s: %w", c.ID(), err)
	}
	return nil
}

// LoadContext restores the context stored under id, ready to be passed to
// a run with WithContext. A missing snapshot fails with store.ErrNotFound.
func LoadContext(ctx context.Context, s store.SnapshotStore, id string) (*Context, error) {
	data, err := s.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load context %s: %w", id, err)
	}
	return RestoreContext(data)
}
