package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/yashrajoria/webook/models"
)

func TestNilCacheNeverHits(t *testing.T) {
	var c *CatalogCache
	ctx := context.Background()

	c.SetBooks(ctx, []models.Book{{ID: 1}})
	c.SetBook(ctx, &models.Book{ID: 1})
	c.Invalidate(ctx)

	_, ok := c.Books(ctx)
	assert.False(t, ok)
	_, ok = c.Book(ctx, 1)
	assert.False(t, ok)
	assert.NoError(t, c.Close())
}

func TestUnreachableRedisIsAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewCatalogCache(client, 0, zap.NewNop())
	defer c.Close()

	ctx := context.Background()
	c.SetBooks(ctx, []models.Book{{ID: 1, Title: "Dune"}})
	_, ok := c.Books(ctx)
	assert.False(t, ok)
	c.Invalidate(ctx)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "books:v:3:all", cacheKey(3, "all"))
	assert.Equal(t, "books:v:1:id:42", cacheKey(1, bookSuffix(42)))
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), "not a url", time.Minute, zap.NewNop())
	assert.Error(t, err)
}
