package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/vivah/internal/config"
)

const counterTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr:         cfg.Redis.Addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForPendingCount is the counter of pending interests a user has received.
func (c *RedisCache) KeyForPendingCount(userID string) string {
	return fmt.Sprintf("interests:pending:%s", userID)
}

// GetPendingCount returns the cached counter. ok is false on a cache miss.
func (c *RedisCache) GetPendingCount(ctx context.Context, userID string) (n int64, ok bool, err error) {
	key := c.KeyForPendingCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	n, err = strconv.ParseInt(val, 10, 64)
	if err != nil || n < 0 {
		// corrupt or drifted below zero; force a DB refill
		_ = c.Client.Del(ctx, key).Err()
		return 0, false, nil
	}
	// refresh TTL since this user is active
	_ = c.Client.Expire(ctx, key, counterTTL).Err()
	return n, true, nil
}

func (c *RedisCache) SetPendingCount(ctx context.Context, userID string, n int64) error {
	return c.Client.Set(ctx, c.KeyForPendingCount(userID), n, counterTTL).Err()
}

// AdjustPendingCount moves a cached counter by delta. A missing key is left
// missing so the next read falls back to the DB instead of trusting a
// counter that started from nothing.
func (c *RedisCache) AdjustPendingCount(ctx context.Context, userID string, delta int64) error {
	key := c.KeyForPendingCount(userID)
	exists, err := c.Client.Exists(ctx, key).Result()
	if err != nil || exists == 0 {
		return err
	}
	pipe := c.Client.TxPipeline()
	pipe.IncrBy(ctx, key, delta)
	pipe.Expire(ctx, key, counterTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// KeyForPresence is the key whose TTL window marks a user online.
func (c *RedisCache) KeyForPresence(userID string) string {
	return fmt.Sprintf("presence:%s", userID)
}

// MarkOnline records the user's live session with a TTL refreshed by pings.
func (c *RedisCache) MarkOnline(ctx context.Context, userID string, ttl time.Duration) error {
	return c.Client.Set(ctx, c.KeyForPresence(userID), time.Now().UTC().Unix(), ttl).Err()
}

func (c *RedisCache) MarkOffline(ctx context.Context, userID string) error {
	pipe := c.Client.TxPipeline()
	pipe.Del(ctx, c.KeyForPresence(userID))
	pipe.Set(ctx, fmt.Sprintf("lastseen:%s", userID), time.Now().UTC().Unix(), 30*24*time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisCache) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := c.Client.Exists(ctx, c.KeyForPresence(userID)).Result()
	return n > 0, err
}

// LastSeen returns when the user last disconnected; zero if unknown.
func (c *RedisCache) LastSeen(ctx context.Context, userID string) (time.Time, error) {
	val, err := c.Client.Get(ctx, fmt.Sprintf("lastseen:%s", userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	} else if err != nil {
		return time.Time{}, err
	}
	return time.Unix(val, 0).UTC(), nil
}
