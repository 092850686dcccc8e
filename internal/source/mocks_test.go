package source

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MockCache implements TextCache in memory
type MockCache struct {
	mu      sync.Mutex
	Entries map[string]string
	Gets    int
	Sets    int
}

func NewMockCache() *MockCache {
	return &MockCache{Entries: make(map[string]string)}
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	v, ok := m.Entries[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (m *MockCache) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sets++
	m.Entries[key] = value
	return nil
}

// MockRedisClient implements RedisClient for testing
type MockRedisClient struct {
	Values map[string]string
	TTLs   map[string]time.Duration
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{Values: make(map[string]string), TTLs: make(map[string]time.Duration)}
}

func (m *MockRedisClient) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.Values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.Values[key] = value.(string)
	m.TTLs[key] = expiration
	return redis.NewStatusResult("OK", nil)
}
