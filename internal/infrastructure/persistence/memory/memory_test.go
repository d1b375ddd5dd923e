package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablewise/server/internal/ports/outbound"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(size int) (*CacheRepository, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCacheRepository(size)
	c.now = clock.now
	return c, clock
}

func TestCacheRepository_ShouldMissUnknownAndExpiredKeys(t *testing.T) {
	// Arrange
	ctx := context.Background()
	c, clock := newTestCache(4)
	require.NoError(t, c.Set(ctx, "recipes:all", []byte("[]"), time.Minute))

	// Act
	hit, err := c.Get(ctx, "recipes:all")
	require.NoError(t, err)
	clock.advance(2 * time.Minute)
	_, expiredErr := c.Get(ctx, "recipes:all")
	_, unknownErr := c.Get(ctx, "recipe:nope")

	// Assert
	assert.Equal(t, "[]", string(hit))
	assert.ErrorIs(t, expiredErr, outbound.ErrCacheMiss)
	assert.ErrorIs(t, unknownErr, outbound.ErrCacheMiss)
	assert.Equal(t, 0, c.Len())
}

func TestCacheRepository_ShouldEvictLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(2)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Hour))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Hour))
	_, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Hour))

	okA, _ := c.Exists(ctx, "a")
	okB, _ := c.Exists(ctx, "b")
	okC, _ := c.Exists(ctx, "c")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.True(t, okC)
}

func TestCacheRepository_ShouldCopyValues(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(2)
	value := []byte("abc")

	require.NoError(t, c.Set(ctx, "k", value, time.Hour))
	value[0] = 'x'
	got, err := c.Get(ctx, "k")

	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestCacheRepository_SweepShouldDropOnlyExpired(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(8)
	require.NoError(t, c.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, c.Set(ctx, "long", []byte("2"), time.Hour))
	clock.advance(time.Minute)

	removed := c.Sweep()

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len())
	require.NoError(t, c.Delete(ctx, "long"))
	assert.Equal(t, 0, c.Len())
}

func TestStateStore_ShouldListKeysByPrefix(t *testing.T) {
	// Arrange
	ctx := context.Background()
	s := NewStateStore()
	require.NoError(t, s.Put(ctx, "device/tablet/plan", []byte("{}")))
	require.NoError(t, s.Put(ctx, "device/phone/selection", []byte("[]")))
	require.NoError(t, s.Put(ctx, "device/phone/plan", []byte("{}")))

	// Act
	keys, err := s.Keys(ctx, "device/phone/")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"device/phone/plan", "device/phone/selection"}, keys)

	require.NoError(t, s.Delete(ctx, "device/phone/plan"))
	_, err = s.Get(ctx, "device/phone/plan")
	assert.ErrorIs(t, err, outbound.ErrStateNotFound)
}
