package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// Cache stores lookup results keyed by the normalized national number.
// A miss is (Result{}, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) (Result, bool, error)
	Set(ctx context.Context, key string, res Result) error
}

const cacheKeyPrefix = "lookup:phone:"

// RedisCache keeps results for a short TTL so repeated screen-pops for the
// same caller do not hit Postgres.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Result, bool, error) {
	b, err := c.rdb.Get(ctx, cacheKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, eris.Wrap(err, "lookup: cache get")
	}
	var res Result
	if err := json.Unmarshal(b, &res); err != nil {
		return Result{}, false, eris.Wrap(err, "lookup: cache decode")
	}
	return res, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, res Result) error {
	b, err := json.Marshal(res)
	if err != nil {
		return eris.Wrap(err, "lookup: cache encode")
	}
	if err := c.rdb.Set(ctx, cacheKeyPrefix+key, b, c.ttl).Err(); err != nil {
		return eris.Wrap(err, "lookup: cache set")
	}
	return nil
}
