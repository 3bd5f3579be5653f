package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hirafetch/pkg/logger"
)

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis, *logger.TestLogger) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	tl := logger.NewTestLogger()
	return NewRedisStoreWithClient(client, DefaultKeyPrefix+"test", ttl, tl), mr, tl
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr, _ := newTestRedisStore(t, 0)

	require.NoError(t, store.Save(ctx, sampleState()))
	assert.True(t, mr.Exists("hirafetch:checkpoint:test"))
	assert.Equal(t, time.Duration(0), mr.TTL("hirafetch:checkpoint:test"))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 2, loaded.LastCursor)
	assert.Equal(t, sampleState().Items, loaded.Items)
}

func TestRedisStoreTTL(t *testing.T) {
	ctx := context.Background()
	store, mr, _ := newTestRedisStore(t, time.Hour)

	require.NoError(t, store.Save(ctx, sampleState()))
	assert.Equal(t, time.Hour, mr.TTL(store.Key()))

	mr.FastForward(2 * time.Hour)
	state, err := store.Load(ctx)
	assert.NoError(t, err)
	assert.Nil(t, state)
}

func TestRedisStoreMissingAndCorrupt(t *testing.T) {
	ctx := context.Background()
	store, mr, tl := newTestRedisStore(t, 0)

	state, err := store.Load(ctx)
	assert.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, mr.Set(store.Key(), "garbage"))
	state, err = store.Load(ctx)
	assert.NoError(t, err)
	assert.Nil(t, state)
	assert.True(t, tl.HasMessage("Ignoring unreadable checkpoint"))
}

func TestRedisStoreDelete(t *testing.T) {
	ctx := context.Background()
	store, mr, _ := newTestRedisStore(t, 0)

	require.NoError(t, store.Save(ctx, sampleState()))
	require.NoError(t, store.Delete(ctx))
	assert.False(t, mr.Exists(store.Key()))
	assert.NoError(t, store.Delete(ctx))
}

func TestRedisStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	store, mr, _ := newTestRedisStore(t, 0)
	mr.Close()

	_, err := store.Load(ctx)
	assert.Error(t, err)
	assert.Error(t, store.Save(ctx, sampleState()))
}
