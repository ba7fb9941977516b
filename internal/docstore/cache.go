package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"
)

const (
	cachePrefix     = "panoptes:current:"
	DefaultCacheTTL = 5 * time.Second
)

// Cached serves GetCurrent from Redis when possible. Redis is an accelerator
// only: every Redis failure falls through to the wrapped store.
type Cached struct {
	Store
	client *redis.Client
	ttl    time.Duration
	log    hclog.Logger
}

func NewCached(store Store, addr string, ttl time.Duration, log hclog.Logger) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		MaxRetries:   0,
		PoolSize:     4,
		DialTimeout:  200 * time.Millisecond,
		ReadTimeout:  200 * time.Millisecond,
		WriteTimeout: 200 * time.Millisecond,
	})
	return &Cached{Store: store, client: client, ttl: ttl, log: log}
}

func CacheKey(collection string) string { return cachePrefix + collection }

func (c *Cached) Unwrap() Store { return c.Store }

func (c *Cached) GetCurrent(ctx context.Context, collection string) (Record, error) {
	key := CacheKey(collection)

	b, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if r, derr := unmarshalCached(b); derr == nil {
			return r, nil
		}
		c.log.Warn("dropping undecodable cache entry", "key", key)
		_ = c.client.Del(ctx, key).Err()
	case !errors.Is(err, redis.Nil):
		c.log.Debug("cache get failed", "key", key, "error", err)
	}

	r, err := c.Store.GetCurrent(ctx, collection)
	if err != nil {
		return r, err
	}
	if b, merr := marshalCached(r); merr == nil {
		if serr := c.client.Set(ctx, key, b, c.ttl).Err(); serr != nil {
			c.log.Debug("cache set failed", "key", key, "error", serr)
		}
	}
	return r, nil
}

func (c *Cached) InsertCurrent(ctx context.Context, collection string, data map[string]any, keep bool) (string, error) {
	id, err := c.Store.InsertCurrent(ctx, collection, data, keep)
	if err != nil {
		return id, err
	}
	if derr := c.client.Del(ctx, CacheKey(collection)).Err(); derr != nil {
		c.log.Debug("cache invalidate failed", "collection", collection, "error", derr)
	}
	return id, nil
}

func (c *Cached) Close(ctx context.Context) error {
	cerr := c.client.Close()
	if err := c.Store.Close(ctx); err != nil {
		return err
	}
	return cerr
}
