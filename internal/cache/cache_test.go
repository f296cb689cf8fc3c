package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pending struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

func TestMemory_SetGetDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SetJSON(ctx, "verify:123456", pending{Phone: "998901234567", Name: "Ali"}, time.Minute))

	var got pending
	found, err := m.GetJSON(ctx, "verify:123456", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Ali", got.Name)

	require.NoError(t, m.Delete(ctx, "verify:123456"))
	found, err = m.GetJSON(ctx, "verify:123456", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory()
	now := time.Date(2025, 9, 8, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.SetJSON(ctx, "k", 1, time.Minute))
	require.NoError(t, m.SetJSON(ctx, "forever", 2, 0))

	now = now.Add(2 * time.Minute)

	var v int
	found, err := m.GetJSON(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = m.GetJSON(ctx, "forever", &v)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, v)
}

func TestRedis_SetGet(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}

	r := NewRedis(Config{Addr: addr}, zap.NewNop())
	t.Cleanup(func() { _ = r.Close() })
	ctx := context.Background()
	require.NoError(t, r.Ping(ctx))

	key := "carrental:test:" + t.Name()
	require.NoError(t, r.SetJSON(ctx, key, pending{Phone: "998901234567"}, time.Minute))

	var got pending
	found, err := r.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "998901234567", got.Phone)

	require.NoError(t, r.Delete(ctx, key))
	found, err = r.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, found)
}
