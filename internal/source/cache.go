package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by a TextCache when a key is absent or stale.
var ErrCacheMiss = errors.New("source: cache miss")

// TextCache stores fetched CSV bodies by file name.
type TextCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// RedisClient is the subset of the Redis client the cache needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisCache implements TextCache using Redis key expiry for the TTL
type RedisCache struct {
	client RedisClient
	ttl    time.Duration
	prefix string
}

// NewRedisCache creates a cache whose entries expire after ttl.
func NewRedisCache(client RedisClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, prefix: "tennis:source:"}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return v, err
}

func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, c.prefix+key, value, c.ttl).Err()
}

// FileCache implements TextCache on a local directory. Entries older than
// the TTL, judged by modification time, are misses.
type FileCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewFileCache creates a cache rooted at dir.
func NewFileCache(dir string, ttl time.Duration) *FileCache {
	return &FileCache{dir: dir, ttl: ttl, now: time.Now}
}

func (c *FileCache) Get(_ context.Context, key string) (string, error) {
	path := filepath.Join(c.dir, key)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", err
	}
	if c.ttl > 0 && c.now().Sub(info.ModTime()) >= c.ttl {
		return "", ErrCacheMiss
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *FileCache) Set(_ context.Context, key, value string) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(c.dir, key))
}
