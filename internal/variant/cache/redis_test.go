package cache

import (
	"context"
	"testing"
	"time"

	"github.com/fekuna/omnipos-variant-service/internal/logger"
	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/variant/dto"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListKeyIsScopedByProduct(t *testing.T) {
	a, err := listKey(&dto.VariantFilters{ProductID: "p-1"})
	require.NoError(t, err)
	b, err := listKey(&dto.VariantFilters{ProductID: "p-1", OnlyVerified: true})
	require.NoError(t, err)
	again, err := listKey(&dto.VariantFilters{ProductID: "p-1"})
	require.NoError(t, err)

	assert.Regexp(t, `^variants:list:p-1:[0-9a-f]{32}$`, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, again)
}

func TestNilCacheAlwaysMisses(t *testing.T) {
	var c *VariantCache
	ctx := context.Background()
	filters := &dto.VariantFilters{ProductID: "p-1"}

	c.SetList(ctx, filters, []model.ProductVariant{{ProductID: "p-1"}})
	c.InvalidateProduct(ctx, "p-1")
	_, ok := c.GetList(ctx, filters)

	assert.False(t, ok)
}

func TestUnreachableRedisIsAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	c := NewVariantCache(client, time.Minute, logger.NewNop())
	ctx := context.Background()
	filters := &dto.VariantFilters{ProductID: "p-1"}

	c.SetList(ctx, filters, []model.ProductVariant{{ProductID: "p-1"}})
	_, ok := c.GetList(ctx, filters)
	c.InvalidateProduct(ctx, "p-1")

	assert.False(t, ok)
}
