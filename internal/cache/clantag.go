package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when no clan tag is cached for a user
var ErrMiss = errors.New("cache miss")

// ClanTagCache remembers the clan a Discord user belongs to
type ClanTagCache interface {
	Get(ctx context.Context, discordID string) (string, error)
	Set(ctx context.Context, discordID, clanTag string, ttl time.Duration) error
}

// RedisClanTagCache stores clan tags under clan_tag:<discordID> with an expiry
type RedisClanTagCache struct {
	rdb *redis.Client
}

// NewRedisClanTagCache connects to redisURL (redis://[:password@]host:port/db) and pings it
func NewRedisClanTagCache(ctx context.Context, redisURL string) (*RedisClanTagCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisClanTagCache{rdb: rdb}, nil
}

// Get returns the cached clan tag or ErrMiss
func (c *RedisClanTagCache) Get(ctx context.Context, discordID string) (string, error) {
	tag, err := c.rdb.Get(ctx, clanTagKey(discordID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	if err != nil {
		return "", fmt.Errorf("failed to read clan tag: %w", err)
	}
	return tag, nil
}

// Set caches clanTag for ttl
func (c *RedisClanTagCache) Set(ctx context.Context, discordID, clanTag string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, clanTagKey(discordID), clanTag, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache clan tag: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (c *RedisClanTagCache) Close() error {
	return c.rdb.Close()
}

func clanTagKey(discordID string) string { return "clan_tag:" + discordID }

// NoopClanTagCache is used when no Redis is configured; every Get misses
type NoopClanTagCache struct{}

func (NoopClanTagCache) Get(ctx context.Context, discordID string) (string, error) {
	return "", ErrMiss
}

func (NoopClanTagCache) Set(ctx context.Context, discordID, clanTag string, ttl time.Duration) error {
	return nil
}
