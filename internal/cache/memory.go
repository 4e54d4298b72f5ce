package cache

import (
	"context"
	"time"

	"github.com/honeynil/cinematch/internal/infrastructure/observability"
	"github.com/honeynil/cinematch/internal/models"
	"github.com/jellydator/ttlcache/v3"
)

// MemoryCache keeps entries in process memory.
type MemoryCache struct {
	items *ttlcache.Cache[string, []models.Movie]
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	items := ttlcache.New(
		ttlcache.WithTTL[string, []models.Movie](ttl),
		ttlcache.WithDisableTouchOnHit[string, []models.Movie](),
	)
	go items.Start()

	return &MemoryCache{items: items}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]models.Movie, bool) {
	item := c.items.Get(key)
	if item == nil {
		observability.CacheLookups.WithLabelValues("memory", "miss").Inc()
		return nil, false
	}
	observability.CacheLookups.WithLabelValues("memory", "hit").Inc()
	return models.CloneMovies(item.Value()), true
}

func (c *MemoryCache) Store(_ context.Context, key string, movies []models.Movie) {
	c.items.Set(key, models.CloneMovies(movies), ttlcache.DefaultTTL)
}

func (c *MemoryCache) Clear(_ context.Context, key string) {
	c.items.Delete(key)
}

// Close stops the expiry goroutine.
func (c *MemoryCache) Close() {
	c.items.Stop()
}
