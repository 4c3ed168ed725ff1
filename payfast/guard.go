package payfast

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard de-duplicates notifications that arrive concurrently
type Guard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisGuard holds a SETNX key per PayFast payment id
type RedisGuard struct {
	Client *redis.Client
	Prefix string
}

func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{Client: client, Prefix: "payfast:itn:"}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return g.Client.SetNX(ctx, g.Prefix+key, time.Now().Unix(), ttl).Result()
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.Client.Del(ctx, g.Prefix+key).Err()
}
