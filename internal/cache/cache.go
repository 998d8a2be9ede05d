package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"forex-entry-bot/config"
	"forex-entry-bot/internal/market"

	"github.com/redis/go-redis/v9"
)

// BarCache caches candle history snapshots in Redis so repeated
// evaluations within the same bar do not hit the broker API. When Redis
// is disabled every Get is a miss and Set is a no-op.
type BarCache struct {
	client *redis.Client
	ttl    time.Duration
}

// ErrMiss is returned when the requested snapshot is not cached.
var ErrMiss = fmt.Errorf("cache miss")

// NewBarCache connects to Redis per the configuration. A nil client is
// returned (with no error) when caching is disabled.
func NewBarCache(cfg config.RedisConfig) (*BarCache, error) {
	if !cfg.Enabled {
		return &BarCache{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := time.Duration(cfg.TTLSecs) * time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &BarCache{client: client, ttl: ttl}, nil
}

// Get returns the cached bars for a symbol and interval, most recent
// first, or ErrMiss.
func (c *BarCache) Get(ctx context.Context, symbol, interval string) ([]market.Bar, error) {
	if c.client == nil {
		return nil, ErrMiss
	}

	raw, err := c.client.Get(ctx, barKey(symbol, interval)).Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached bars: %w", err)
	}

	var bars []market.Bar
	if err := json.Unmarshal(raw, &bars); err != nil {
		return nil, fmt.Errorf("failed to decode cached bars: %w", err)
	}
	return bars, nil
}

// Set stores a bar snapshot with the configured TTL.
func (c *BarCache) Set(ctx context.Context, symbol, interval string, bars []market.Bar) error {
	if c.client == nil {
		return nil
	}

	raw, err := json.Marshal(bars)
	if err != nil {
		return fmt.Errorf("failed to encode bars: %w", err)
	}
	if err := c.client.Set(ctx, barKey(symbol, interval), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache bars: %w", err)
	}
	return nil
}

// Invalidate drops the cached snapshot, used when a new bar opens.
func (c *BarCache) Invalidate(ctx context.Context, symbol, interval string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, barKey(symbol, interval)).Err()
}

// Close releases the Redis connection.
func (c *BarCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func barKey(symbol, interval string) string {
	return fmt.Sprintf("bars:%s:%s", symbol, interval)
}
