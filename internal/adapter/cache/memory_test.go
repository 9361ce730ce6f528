package cache

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetSet(t *testing.T) {
	s := NewMemoryStore(10, clockwork.NewFakeClock())
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Minute))
	v, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)
}

func TestMemoryStore_Expiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewMemoryStore(10, clock)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Minute))

	clock.Advance(59 * time.Second)
	_, ok, _ := s.Get(ctx, "a")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok, _ = s.Get(ctx, "a")
	assert.False(t, ok, "entry expires exactly at its deadline")
	assert.Zero(t, s.Len(), "expired entries are removed on read")
}

func TestMemoryStore_EvictsLeastRecentlyUsed(t *testing.T) {
	s := NewMemoryStore(2, clockwork.NewFakeClock())
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Hour))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), time.Hour))

	// Touch a so b becomes the eviction candidate.
	_, _, _ = s.Get(ctx, "a")
	require.NoError(t, s.Set(ctx, "c", []byte("3"), time.Hour))

	_, okA, _ := s.Get(ctx, "a")
	_, okB, _ := s.Get(ctx, "b")
	_, okC, _ := s.Get(ctx, "c")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.True(t, okC)
	assert.Equal(t, 2, s.Len())
}

func TestMemoryStore_OverwriteRefreshesExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewMemoryStore(10, clock)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte("old"), time.Minute))
	clock.Advance(50 * time.Second)
	require.NoError(t, s.Set(ctx, "a", []byte("new"), time.Minute))
	clock.Advance(50 * time.Second)

	v, ok, _ := s.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, []byte("new"), v)
	assert.Equal(t, 1, s.Len())
}
