package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// a :memory: database lives per connection
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewSQLite(context.Background(), db)
	require.NoError(t, err)
	return s
}

func newTestRedis(t *testing.T, optFns ...func(o *RedisOptions)) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedis(client, optFns...), server
}

func TestSnapshotStores(t *testing.T) {
	stores := map[string]func(t *testing.T) SnapshotStore{
		"memory": func(*testing.T) SnapshotStore { return NewMemory() },
		"sqlite": func(t *testing.T) SnapshotStore { return newTestSQLite(t) },
		"redis": func(t *testing.T) SnapshotStore {
			s, _ := newTestRedis(t)
			return s
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			t.Run("load missing", func(t *testing.T) {
				_, err := s.Load(ctx, "missing")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("save and load", func(t *testing.T) {
				require.NoError(t, s.Save(ctx, "a", []byte("first")))

				got, err := s.Load(ctx, "a")
				require.NoError(t, err)
				assert.Equal(t, []byte("first"), got)
			})

			t.Run("save overwrites", func(t *testing.T) {
				require.NoError(t, s.Save(ctx, "a", []byte("second")))

				got, err := s.Load(ctx, "a")
				require.NoError(t, err)
				assert.Equal(t, []byte("second"), got)
			})

			t.Run("delete", func(t *testing.T) {
				require.NoError(t, s.Delete(ctx, "a"))

				_, err := s.Load(ctx, "a")
				assert.ErrorIs(t, err, ErrNotFound)
				assert.ErrorIs(t, s.Delete(ctx, "a"), ErrNotFound)
			})
		})
	}
}

func TestMemory_CopiesData(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	data := []byte("abc")
	require.NoError(t, m.Save(ctx, "x", data))
	data[0] = 'z'

	got, err := m.Load(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got[1] = 'z'
	again, err := m.Load(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)

	assert.Equal(t, []string{"x"}, m.IDs())
}

func TestRedis_PrefixAndTTL(t *testing.T) {
	ctx := context.Background()
	s, server := newTestRedis(t, func(o *RedisOptions) {
		o.Prefix = "test:"
		o.TTL = time.Minute
	})

	require.NoError(t, s.Save(ctx, "run-1", []byte("state")))
	assert.True(t, server.Exists("test:ctx:run-1"))
	assert.Equal(t, time.Minute, server.TTL("test:ctx:run-1"))

	server.FastForward(2 * time.Minute)

	_, err := s.Load(ctx, "run-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedis_DefaultPrefix(t *testing.T) {
	ctx := context.Background()
	s, server := newTestRedis(t, func(o *RedisOptions) { o.Prefix = "" })

	require.NoError(t, s.Save(ctx, "run-2", []byte("state")))
	assert.True(t, server.Exists(DefaultRedisPrefix+"ctx:run-2"))
	assert.Equal(t, time.Duration(0), server.TTL(DefaultRedisPrefix+"ctx:run-2"))
}
