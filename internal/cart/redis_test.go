package cart

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client), mr
}

func testCart(customerID int64) *Cart {
	now := time.Now()
	return &Cart{
		CustomerID: customerID,
		Currency:   "USD",
		Items: []Item{
			{ProductID: 1, StoreID: 10, ProductName: "Widget", SKU: "W-1",
				Quantity: 2, UnitPrice: decimal.RequireFromString("19.99"), AddedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(Lifetime),
	}
}

func TestCacheGet_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	c := testCart(123)
	cartJSON, _ := json.Marshal(c)
	mr.Set(cacheKey(123), string(cartJSON))

	result, err := cache.Get(ctx, 123)
	require.NoError(t, err)
	assert.Equal(t, int64(123), result.CustomerID)
	assert.Len(t, result.Items, 1)
	assert.True(t, result.Items[0].UnitPrice.Equal(decimal.RequireFromString("19.99")))
}

func TestCacheGet_CacheMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	result, err := cache.Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestCacheGet_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)

	mr.Set(cacheKey(1), "{not json")

	_, err := cache.Get(context.Background(), 1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestCacheSet_And_Get(t *testing.T) {
	cache, _ := setupTestRedis(t)
	ctx := context.Background()

	c := testCart(7)
	require.NoError(t, cache.Set(ctx, 7, c))

	result, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, c.CustomerID, result.CustomerID)
	assert.True(t, result.Total().Equal(decimal.RequireFromString("39.98")))
}

func TestCacheDelete(t *testing.T) {
	cache, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 7, testCart(7)))
	require.NoError(t, cache.Delete(ctx, 7))

	_, err := cache.Get(ctx, 7)
	assert.ErrorIs(t, err, ErrCacheMiss)
}
