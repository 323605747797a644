package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/EMe-U/plotsure/internal/listing/domain"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	listingKeyPrefix = "listing:"
	statsKeyPrefix   = "listing-stats:"
	DefaultStatsTTL  = time.Minute
	scanBatch        = 100
)

type ListingCache struct {
	client   *redis.Client
	ttl      time.Duration
	statsTTL time.Duration
	logger   *logger.Logger
}

func NewListingCache(client *redis.Client, ttl, statsTTL time.Duration, log *logger.Logger) *ListingCache {
	if statsTTL <= 0 {
		statsTTL = DefaultStatsTTL
	}
	return &ListingCache{client: client, ttl: ttl, statsTTL: statsTTL, logger: log.Named("ListingCache")}
}

func (c *ListingCache) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	var listing domain.Listing
	hit, err := c.get(ctx, listingKeyPrefix+id, &listing)
	if err != nil || !hit {
		return nil, err
	}
	return &listing, nil
}

func (c *ListingCache) SetListing(ctx context.Context, listing *domain.Listing) error {
	return c.set(ctx, listingKeyPrefix+listing.ID, listing, c.ttl)
}

func (c *ListingCache) DeleteListing(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, listingKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", id, err)
	}
	return nil
}

func (c *ListingCache) GetStats(ctx context.Context, scope string) (*domain.Stats, error) {
	var stats domain.Stats
	hit, err := c.get(ctx, statsKeyPrefix+scope, &stats)
	if err != nil || !hit {
		return nil, err
	}
	return &stats, nil
}

func (c *ListingCache) SetStats(ctx context.Context, scope string, stats *domain.Stats) error {
	return c.set(ctx, statsKeyPrefix+scope, stats, c.statsTTL)
}

// InvalidateStats drops every cached stats scope.
func (c *ListingCache) InvalidateStats(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, statsKeyPrefix+"*", scanBatch).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan stats keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del stats keys: %w", err)
	}
	c.logger.Debug("Stats cache invalidated", zap.Int("keys", len(keys)))
	return nil
}

func (c *ListingCache) get(ctx context.Context, key string, out interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn("Dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

func (c *ListingCache) set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
