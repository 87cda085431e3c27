package ingest

import (
	"context"
	"time"

	"crm-telephony/pkg/logger"
	"crm-telephony/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Locker serializes sync passes. It only avoids duplicate-insert churn;
// the unique constraint on call_logs is what keeps storage correct.
type Locker interface {
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

const syncLockKey = "sync:lock"

// RedisLock is a cross-process Locker. The TTL should outlast the longest
// expected feed fetch.
type RedisLock struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLock(rdb *redis.Client, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisLock{rdb: rdb, ttl: ttl}
}

func (l *RedisLock) Acquire(ctx context.Context) (func(), bool, error) {
	token, ok, err := utils.AcquireLock(ctx, l.rdb, syncLockKey, l.ttl)
	if err != nil || !ok {
		return func() {}, ok, err
	}
	release := func() {
		ctx := context.WithoutCancel(ctx)
		if err := utils.ReleaseLock(ctx, l.rdb, syncLockKey, token); err != nil {
			logger.From(ctx).Warn("sync lock release failed; it expires on its own", "err", err)
		}
	}
	return release, true, nil
}
