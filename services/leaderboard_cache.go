package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/lifecycle"
)

const leaderboardKey = "leaderboard:v1"

// LeaderboardCache stores the computed leaderboard in Redis for a short TTL.
type LeaderboardCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewLeaderboardCache returns nil when redisURL is empty.
func NewLeaderboardCache(ctx context.Context, redisURL string, ttl time.Duration) (*LeaderboardCache, error) {
	if redisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errs.NewConfigError("REDIS_URL", err)
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = 100
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, errs.NewUpstreamError("redis", err)
	}
	return NewLeaderboardCacheWithClient(rdb, ttl), nil
}

func NewLeaderboardCacheWithClient(rdb *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached leaderboard; ok is false on a miss.
func (c *LeaderboardCache) Get(ctx context.Context) (entries []lifecycle.LeaderboardEntry, ok bool, err error) {
	val, err := c.rdb.Get(ctx, leaderboardKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.NewUpstreamError("redis", err)
	}
	if err := json.Unmarshal(val, &entries); err != nil {
		// a corrupt entry is treated as a miss and overwritten by the next Set
		return nil, false, nil
	}
	return entries, true, nil
}

func (c *LeaderboardCache) Set(ctx context.Context, entries []lifecycle.LeaderboardEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, leaderboardKey, data, c.ttl).Err(); err != nil {
		return errs.NewUpstreamError("redis", err)
	}
	return nil
}

// Invalidate drops the cached leaderboard.
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Del(ctx, leaderboardKey).Err(); err != nil {
		return errs.NewUpstreamError("redis", err)
	}
	return nil
}

func (c *LeaderboardCache) Close() error {
	return c.rdb.Close()
}
