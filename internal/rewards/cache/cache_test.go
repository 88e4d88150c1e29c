package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deal struct {
	Program string   `json:"program"`
	Points  int      `json:"points"`
	Reasons []string `json:"reasons"`
}

func cloneDeal(d *deal) *deal {
	if d == nil {
		return nil
	}
	out := *d
	out.Reasons = append([]string(nil), d.Reasons...)
	return &out
}

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(cloneDeal)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	original := &deal{Program: "ana", Points: 70000, Reasons: []string{"cheap"}}
	require.NoError(t, c.Set(ctx, "k", original, time.Minute))

	original.Reasons[0] = "mutated"
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cheap", got.Reasons[0], "stored value is a copy")

	got.Points = 1
	again, _, _ := c.Get(ctx, "k")
	assert.Equal(t, 70000, again.Points, "returned value is a copy")
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	c := NewMemory[int](nil)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", 42, 30*time.Second))
	v, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	now = now.Add(31 * time.Second)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Zero(t, c.Len(), "expired entries are dropped on read")
}

func TestMemory_NonPositiveTTLSkipsStore(t *testing.T) {
	c := NewMemory[string](nil)
	require.NoError(t, c.Set(context.Background(), "k", "v", 0))
	assert.Zero(t, c.Len())
}

func TestRedis_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	defer client.Close()

	store := NewRedis[*deal](client, "test:deals:")
	key := time.Now().Format(time.RFC3339Nano)

	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, key, &deal{Program: "ana", Points: 70000}, time.Minute))
	got, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 70000, got.Points)
}
