package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache keeps tactic replies in a redis instance so they outlive a
// single environment and can be inspected while a long search runs.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ TacticCache = &RedisCache{}

func NewRedisCache(addr string) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:        addr,
			DialTimeout: 100 * time.Millisecond,
		}),
		prefix: "leangym:",
		ttl:    24 * time.Hour,
	}
}

func (r *RedisCache) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	val, err := r.client.Get(ctx, r.prefix+key).Result()
	if err != nil {
		// a miss and an unreachable server look the same to the caller
		return "", false
	}
	return val, true
}

func (r *RedisCache) Put(key string, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	r.client.Set(ctx, r.prefix+key, value, r.ttl)
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
