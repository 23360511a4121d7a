package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces snapshot keys when no prefix is configured.
const DefaultRedisPrefix = "stepflow:"

// RedisOptions configures a Redis store.
type RedisOptions struct {
	// Prefix is prepended to every key. Defaults to DefaultRedisPrefix.
	Prefix string

	// TTL expires snapshots after the given duration. Zero keeps them
	// until deleted.
	TTL time.Duration
}

// Redis is a SnapshotStore backed by Redis. Each snapshot lives under
// <prefix>ctx:<id> as a plain string value.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ SnapshotStore = (*Redis)(nil)

// NewRedis creates a Redis store on top of an existing client.
func NewRedis(client redis.UniversalClient, optFns ...func(o *RedisOptions)) *Redis {
	opts := RedisOptions{Prefix: DefaultRedisPrefix}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultRedisPrefix
	}

	return &Redis{
		client: client,
		prefix: opts.Prefix,
		ttl:    opts.TTL,
	}
}

func (r *Redis) key(id string) string {
	return r.prefix + "ctx:" + id
}

// Save stores data under id, refreshing the TTL if one is configured.
func (r *Redis) Save(ctx context.Context, id string, data []byte) error {
	if err := r.client.Set(ctx, r.key(id), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", id, err)
	}
	return nil
}

// Load returns the snapshot stored under id or ErrNotFound.
func (r *Redis) Load(ctx context.Context, id string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", id, err)
	}
	return data, nil
}

// Delete removes the snapshot or returns ErrNotFound.
func (r *Redis) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
