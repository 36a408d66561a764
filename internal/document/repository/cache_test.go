package repository

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gogotex/docnorm/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type countingRepo struct {
	*MemoryRepo
	gets int
}

func (c *countingRepo) Get(ctx context.Context, collection string, id any) (map[string]any, error) {
	c.gets++
	return c.MemoryRepo.Get(ctx, collection, id)
}

func newCached(t *testing.T, ttl time.Duration) (*CachedRepo, *countingRepo, *mr.Miniredis) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	backing := &countingRepo{MemoryRepo: NewMemoryRepo()}
	return NewCachedRepo(backing, client, "test:doc:", ttl), backing, m
}

func TestCachedRepo_InsertWritesThrough(t *testing.T) {
	c, backing, m := newCached(t, time.Minute)
	ctx := context.Background()
	author := primitive.NewObjectID()

	id, err := c.Insert(ctx, "posts", map[string]any{"title": "hi", "author": author})
	require.NoError(t, err)
	require.True(t, m.Exists("test:doc:posts:"+KeyOf(id)))

	hits := testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("hit"))
	got, err := c.Get(ctx, "posts", id)
	require.NoError(t, err)
	require.Equal(t, 0, backing.gets)
	require.Equal(t, hits+1, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("hit")))
	require.Equal(t, "hi", got["title"])
	require.Equal(t, id, got["_id"])
	require.Equal(t, author, got["author"])
}

func TestCachedRepo_ReadThroughAndTTL(t *testing.T) {
	c, backing, m := newCached(t, time.Second)
	ctx := context.Background()

	id, err := backing.Insert(ctx, "posts", map[string]any{"_id": "slug-1", "title": "hi"})
	require.NoError(t, err)

	_, err = c.Get(ctx, "posts", id)
	require.NoError(t, err)
	require.Equal(t, 1, backing.gets)

	_, err = c.Get(ctx, "posts", id)
	require.NoError(t, err)
	require.Equal(t, 1, backing.gets)

	m.FastForward(2 * time.Second)
	got, err := c.Get(ctx, "posts", id)
	require.NoError(t, err)
	require.Equal(t, 2, backing.gets)
	require.Equal(t, "slug-1", got["_id"])
}

func TestCachedRepo_DeleteInvalidates(t *testing.T) {
	c, _, m := newCached(t, 0)
	ctx := context.Background()

	id, err := c.Insert(ctx, "posts", map[string]any{"title": "hi"})
	require.NoError(t, err)
	key := "test:doc:posts:" + KeyOf(id)
	require.True(t, m.Exists(key))

	require.NoError(t, c.Delete(ctx, "posts", id))
	require.False(t, m.Exists(key))
	_, err = c.Get(ctx, "posts", id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCachedRepo_RedisDownFallsBack(t *testing.T) {
	c, backing, m := newCached(t, time.Minute)
	ctx := context.Background()
	id, err := backing.Insert(ctx, "posts", map[string]any{"title": "hi"})
	require.NoError(t, err)

	m.Close()
	got, err := c.Get(ctx, "posts", id)
	require.NoError(t, err)
	require.Equal(t, "hi", got["title"])
}
