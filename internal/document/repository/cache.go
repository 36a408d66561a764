package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gogotex/docnorm/internal/document"
	"github.com/gogotex/docnorm/pkg/logger"
	"github.com/gogotex/docnorm/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
)

var cacheLog = logger.Named("cache")

// CachedRepo is a read-through Redis cache in front of another Repository.
// Documents are cached as canonical Extended JSON under
// "<prefix><collection>:<id key>" so ObjectIDs and number types survive the
// round trip. Redis failures degrade to the wrapped repository.
type CachedRepo struct {
	next   Repository
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewCachedRepo wraps next. Prefix may be empty; a zero ttl keeps entries
// until the document is deleted.
func NewCachedRepo(next Repository, client *redis.Client, prefix string, ttl time.Duration) *CachedRepo {
	if prefix == "" {
		prefix = "doc:"
	}
	return &CachedRepo{next: next, client: client, prefix: prefix, ttl: ttl}
}

func (c *CachedRepo) key(collection string, id any) string {
	return c.prefix + collection + ":" + KeyOf(id)
}

func (c *CachedRepo) store(ctx context.Context, collection string, id any, values map[string]any) {
	b, err := bson.MarshalExtJSON(bson.M(values), true, false)
	if err != nil {
		cacheLog.Warnf("encode %s/%v: %v", collection, id, err)
		return
	}
	if err := c.client.Set(ctx, c.key(collection, id), b, c.ttl).Err(); err != nil {
		cacheLog.Warnf("set %s/%v: %v", collection, id, err)
	}
}

func (c *CachedRepo) Insert(ctx context.Context, collection string, values map[string]any) (any, error) {
	id, err := c.next.Insert(ctx, collection, values)
	if err != nil {
		return nil, err
	}
	stored := make(map[string]any, len(values)+1)
	for k, v := range values {
		stored[k] = v
	}
	stored[document.PKField] = id
	c.store(ctx, collection, id, stored)
	return id, nil
}

func (c *CachedRepo) Get(ctx context.Context, collection string, id any) (map[string]any, error) {
	b, err := c.client.Get(ctx, c.key(collection, id)).Bytes()
	switch {
	case err == nil:
		var d bson.M
		if uerr := bson.UnmarshalExtJSON(b, true, &d); uerr == nil {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return map[string]any(d), nil
		}
		metrics.CacheLookups.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		cacheLog.Warnf("get %s/%v: %v", collection, id, err)
	}

	d, err := c.next.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, collection, id, d)
	return d, nil
}

// List is not cached.
func (c *CachedRepo) List(ctx context.Context, collection string) ([]map[string]any, error) {
	return c.next.List(ctx, collection)
}

func (c *CachedRepo) Delete(ctx context.Context, collection string, id any) error {
	if err := c.client.Del(ctx, c.key(collection, id)).Err(); err != nil {
		cacheLog.Warnf("del %s/%v: %v", collection, id, err)
	}
	return c.next.Delete(ctx, collection, id)
}
