package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/honeynil/cinematch/internal/infrastructure/redis"
)

// Storage is the durable key-value side of the token store. Implementations
// report absent keys with redis.ErrKeyNotFound.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, key string) error
}

type memoryItem struct {
	value     string
	expiresAt time.Time
}

// MemoryStorage keeps sessions in process memory. Used for local development
// and tests; everything is lost on restart.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	item, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return "", redis.ErrKeyNotFound
	}
	if !item.expiresAt.IsZero() && !m.now().Before(item.expiresAt) {
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return "", redis.ErrKeyNotFound
	}
	return item.value, nil
}

func (m *MemoryStorage) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	item := memoryItem{value: fmt.Sprint(value)}
	if s, ok := value.(string); ok {
		item.value = s
	}
	if expiration > 0 {
		item.expiresAt = m.now().Add(expiration)
	}
	m.mu.Lock()
	m.items[key] = item
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Del(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}
