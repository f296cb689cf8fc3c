package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runBackendSuite проверяет контракт хранилища на любой реализации.
func runBackendSuite(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Run("missing key is empty bag", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		bag, err := b.Get(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, bag)

		step, err := b.GetStep(ctx, "nobody")
		require.NoError(t, err)
		assert.Equal(t, "", step)
	})

	t.Run("update merges fields", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		require.NoError(t, b.Update(ctx, "u1", Bag{"name": "Ali", "car_id": "7"}))
		require.NoError(t, b.Update(ctx, "u1", Bag{"name": "Vali", "phone": "998901234567"}))

		bag, err := b.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, Bag{"name": "Vali", "car_id": "7", "phone": "998901234567"}, bag)
	})

	t.Run("step is tracked separately", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		require.NoError(t, b.SetStep(ctx, "u2", "awaiting_name"))
		require.NoError(t, b.Update(ctx, "u2", Bag{"name": "Ali"}))
		require.NoError(t, b.SetStep(ctx, "u2", "awaiting_phone"))

		step, err := b.GetStep(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, "awaiting_phone", step)

		bag, err := b.Get(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, "Ali", bag["name"])
	})

	t.Run("clear removes bag and step", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		require.NoError(t, b.Update(ctx, "u3", Bag{"name": "Ali"}))
		require.NoError(t, b.SetStep(ctx, "u3", "awaiting_phone"))
		require.NoError(t, b.Clear(ctx, "u3"))

		bag, err := b.Get(ctx, "u3")
		require.NoError(t, err)
		assert.Empty(t, bag)

		step, err := b.GetStep(ctx, "u3")
		require.NoError(t, err)
		assert.Equal(t, "", step)
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		require.NoError(t, b.Update(ctx, "a", Bag{"name": "A"}))
		require.NoError(t, b.Update(ctx, "b", Bag{"name": "B"}))
		require.NoError(t, b.Clear(ctx, "a"))

		bag, err := b.Get(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "B", bag["name"])
	})

	t.Run("references", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		_, ok, err := b.LookupReference(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, b.PutReference(ctx, "ref-1", "u4"))
		key, ok, err := b.LookupReference(ctx, "ref-1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "u4", key)

		require.NoError(t, b.DeleteReference(ctx, "ref-1"))
		_, ok, err = b.LookupReference(ctx, "ref-1")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestMemoryStore(t *testing.T) {
	runBackendSuite(t, func(t *testing.T) Backend {
		return NewMemoryStore(time.Hour)
	})
}

func TestBadgerStore(t *testing.T) {
	runBackendSuite(t, func(t *testing.T) Backend {
		db, err := OpenBadger("")
		require.NoError(t, err)
		s := NewBadgerStore(db, time.Hour)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}

	runBackendSuite(t, func(t *testing.T) Backend {
		client := redis.NewClient(&redis.Options{Addr: addr})
		t.Cleanup(func() { _ = client.Close() })

		s := NewRedisStore(client, time.Minute)
		s.prefix = "carrental-test:" + t.Name() + ":"
		return s
	})
}

func TestMemoryStore_Expiry(t *testing.T) {
	now := time.Date(2026, time.October, 16, 10, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Hour)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, "u", Bag{"name": "Ali"}))
	require.NoError(t, s.SetStep(ctx, "u", "awaiting_phone"))
	require.NoError(t, s.PutReference(ctx, "ref", "u"))

	now = now.Add(59 * time.Minute)
	step, err := s.GetStep(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "awaiting_phone", step)

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 2, s.Sweep())

	bag, err := s.Get(ctx, "u")
	require.NoError(t, err)
	assert.Empty(t, bag)
	_, ok, err := s.LookupReference(ctx, "ref")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, "u", Bag{"name": "Ali"}))
	bag, err := s.Get(ctx, "u")
	require.NoError(t, err)
	bag["name"] = "changed"

	again, err := s.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "Ali", again["name"])
}
