package lib

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		return nil
	}
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

// RateLimiter is a fixed-window counter per key.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
	prefix string
}

func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{rdb: rdb, limit: int64(limit), window: window, prefix: "rl"}
}

// Allow counts one hit for key and reports whether it is within the limit.
// The counter is created with its TTL in the same MULTI as the increment, so
// a window can never outlive its expiry.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := fmt.Sprintf("%s:%s", l.prefix, key)
	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, k, 0, l.window)
		incr = pipe.Incr(ctx, k)
		return nil
	})
	if err != nil {
		return false, err
	}
	return incr.Val() <= l.limit, nil
}

// EventGuard marks webhook event ids as in flight so that a concurrent
// redelivery of the same event is dropped.
type EventGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewEventGuard(rdb *redis.Client, ttl time.Duration) *EventGuard {
	return &EventGuard{rdb: rdb, ttl: ttl}
}

func (g *EventGuard) key(eventID string) string {
	return fmt.Sprintf("stripe:event:%s", eventID)
}

func (g *EventGuard) Acquire(ctx context.Context, eventID string) (bool, error) {
	return g.rdb.SetNX(ctx, g.key(eventID), "1", g.ttl).Result()
}

func (g *EventGuard) Release(ctx context.Context, eventID string) error {
	return g.rdb.Del(ctx, g.key(eventID)).Err()
}
