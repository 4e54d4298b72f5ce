package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/honeynil/cinematch/internal/infrastructure/observability"
	"github.com/honeynil/cinematch/internal/infrastructure/redis"
	"github.com/honeynil/cinematch/internal/models"
)

const redisKeyPrefix = "movies-cache:"

// RedisCache shares entries between gateway instances. Expiry is delegated to
// redis; decode or transport failures read as a miss.
type RedisCache struct {
	client redis.RedisClient
	ttl    time.Duration
}

func NewRedisCache(client redis.RedisClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]models.Movie, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key)
	if err != nil {
		if !errors.Is(err, redis.ErrKeyNotFound) {
			slog.Error("failed to read cached movies", "key", key, "error", err)
		}
		observability.CacheLookups.WithLabelValues("redis", "miss").Inc()
		return nil, false
	}

	var movies []models.Movie
	if err := json.Unmarshal([]byte(data), &movies); err != nil {
		slog.Error("failed to unmarshal cached movies", "key", key, "error", err)
		observability.CacheLookups.WithLabelValues("redis", "miss").Inc()
		return nil, false
	}
	observability.CacheLookups.WithLabelValues("redis", "hit").Inc()
	return movies, true
}

func (c *RedisCache) Store(ctx context.Context, key string, movies []models.Movie) {
	data, err := json.Marshal(movies)
	if err != nil {
		slog.Error("failed to marshal movies for cache", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, string(data), c.ttl); err != nil {
		slog.Error("failed to cache movies", "key", key, "error", err)
	}
}

func (c *RedisCache) Clear(ctx context.Context, key string) {
	if err := c.client.Del(ctx, redisKeyPrefix+key); err != nil {
		slog.Error("failed to clear cached movies", "key", key, "error", err)
	}
}
