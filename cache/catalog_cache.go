package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yashrajoria/webook/models"
)

const (
	BookListCachePrefix = "books:v:"
	CacheVersionKey     = "books:version"
	DefaultCacheTTL     = 5 * time.Minute
)

// CatalogCache caches the book collection and single books in Redis.
// Writes bump a version key so every cached entry goes stale at once.
// A nil *CatalogCache is valid and never hits.
type CatalogCache struct {
	redis *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

// NewCatalogCache wraps an existing client.
func NewCatalogCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CatalogCache{redis: client, ttl: ttl, log: log}
}

// Connect parses a redis:// URL and checks the server is reachable.
func Connect(ctx context.Context, url string, ttl time.Duration, log *zap.Logger) (*CatalogCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewCatalogCache(client, ttl, log), nil
}

// Books returns the cached collection.
func (c *CatalogCache) Books(ctx context.Context) ([]models.Book, bool) {
	var books []models.Book
	if !c.get(ctx, "all", &books) {
		return nil, false
	}
	return books, true
}

// SetBooks caches the collection under the current version.
func (c *CatalogCache) SetBooks(ctx context.Context, books []models.Book) {
	c.set(ctx, "all", books)
}

// Book returns one cached book.
func (c *CatalogCache) Book(ctx context.Context, id uint) (*models.Book, bool) {
	var b models.Book
	if !c.get(ctx, bookSuffix(id), &b) {
		return nil, false
	}
	return &b, true
}

// SetBook caches one book under the current version.
func (c *CatalogCache) SetBook(ctx context.Context, b *models.Book) {
	if b == nil {
		return
	}
	c.set(ctx, bookSuffix(b.ID), b)
}

// Invalidate invalidates all catalog caches by bumping the version
func (c *CatalogCache) Invalidate(ctx context.Context) {
	if c == nil || c.redis == nil {
		return
	}
	newVersion, err := c.redis.Incr(ctx, CacheVersionKey).Result()
	if err != nil {
		c.log.Error("Failed to invalidate catalog cache", zap.Error(err))
		return
	}
	c.log.Debug("Catalog cache invalidated", zap.Int64("new_version", newVersion))
}

// Close releases the client.
func (c *CatalogCache) Close() error {
	if c == nil || c.redis == nil {
		return nil
	}
	return c.redis.Close()
}

func (c *CatalogCache) get(ctx context.Context, suffix string, dst interface{}) bool {
	if c == nil || c.redis == nil {
		return false
	}
	version, err := c.version(ctx)
	if err != nil {
		return false
	}
	data, err := c.redis.Get(ctx, cacheKey(version, suffix)).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.log.Warn("Failed to unmarshal cached catalog entry", zap.Error(err), zap.String("key", suffix))
		return false
	}
	return true
}

func (c *CatalogCache) set(ctx context.Context, suffix string, v interface{}) {
	if c == nil || c.redis == nil {
		return
	}
	version, err := c.version(ctx)
	if err != nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("Failed to marshal catalog entry for cache", zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, cacheKey(version, suffix), data, c.ttl).Err(); err != nil {
		c.log.Warn("Failed to cache catalog entry", zap.Error(err), zap.String("key", suffix))
	}
}

// version reads the current cache version, initializing it on first use.
func (c *CatalogCache) version(ctx context.Context) (int64, error) {
	ver, err := c.redis.Get(ctx, CacheVersionKey).Int64()
	if err == nil && ver > 0 {
		return ver, nil
	}
	if errors.Is(err, redis.Nil) {
		if err := c.redis.SetNX(ctx, CacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.redis.Get(ctx, CacheVersionKey).Int64()
	}
	if err == nil {
		err = fmt.Errorf("invalid cache version %d", ver)
	}
	return 0, err
}

func cacheKey(version int64, suffix string) string {
	return fmt.Sprintf("%s%d:%s", BookListCachePrefix, version, suffix)
}

func bookSuffix(id uint) string {
	return fmt.Sprintf("id:%d", id)
}
