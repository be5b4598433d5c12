// Package cache keeps variant listings in Redis. A nil *VariantCache is a
// valid, always-missing cache.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-variant-service/internal/logger"
	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/variant/dto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, cfg *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

type VariantCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger logger.ZapLogger
}

func NewVariantCache(client redis.Cmdable, ttl time.Duration, log logger.ZapLogger) *VariantCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &VariantCache{client: client, ttl: ttl, logger: log}
}

func listKey(filters *dto.VariantFilters) (string, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("variants:list:%s:%x", filters.ProductID, md5.Sum(data)), nil
}

// GetList returns the cached listing for filters. Any Redis failure is a miss.
func (c *VariantCache) GetList(ctx context.Context, filters *dto.VariantFilters) ([]model.ProductVariant, bool) {
	if c == nil {
		return nil, false
	}
	key, err := listKey(filters)
	if err != nil {
		return nil, false
	}

	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("variant cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var variants []model.ProductVariant
	if err := json.Unmarshal(val, &variants); err != nil {
		return nil, false
	}
	return variants, true
}

func (c *VariantCache) SetList(ctx context.Context, filters *dto.VariantFilters, variants []model.ProductVariant) {
	if c == nil {
		return
	}
	key, err := listKey(filters)
	if err != nil {
		return
	}
	data, err := json.Marshal(variants)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("variant cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateProduct drops every cached listing of productID.
func (c *VariantCache) InvalidateProduct(ctx context.Context, productID string) {
	if c == nil {
		return
	}
	pattern := fmt.Sprintf("variants:list:%s:*", productID)
	keys, err := c.client.Keys(ctx, pattern).Result()
	if err != nil {
		c.logger.Warn("variant cache invalidation failed", zap.String("product_id", productID), zap.Error(err))
		return
	}
	if len(keys) > 0 {
		c.client.Del(ctx, keys...)
	}
}
