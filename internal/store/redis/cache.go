// Package redis caches live forex rates. The latest rate per pair is kept
// under a TTL'd key so API reads never hit the upstream provider, and every
// refresh cycle is published on a Pub/Sub channel for other instances.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"fxdesk/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	latestKeyPrefix = "rate:latest:"
	ratesChannel    = "pub:rates"

	// Latest-rate TTL: generous multiple of the refresh interval so a few
	// missed cycles don't blank the cache, but stale rates still expire.
	defaultLatestTTL = 30 * time.Minute
)

// Config configures the rate cache.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Cache is a Redis-backed live rate cache.
type Cache struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// New creates the cache and pings the server.
func New(cfg Config) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis cache connected", "addr", cfg.Addr)
	return &Cache{client: client}, nil
}

// WriteRates stores a refresh cycle's rates in a single pipeline:
// SET per pair with TTL, then one PUBLISH of the whole batch.
func (c *Cache) WriteRates(ctx context.Context, rates []model.Rate) error {
	if len(rates) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, r := range rates {
		pipe.Set(ctx, latestKeyPrefix+r.Pair, string(r.JSON()), defaultLatestTTL)
	}

	batch, err := json.Marshal(rates)
	if err != nil {
		return fmt.Errorf("marshal rate batch: %w", err)
	}
	pipe.Publish(ctx, ratesChannel, string(batch))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis rate pipeline: %w", err)
	}
	return nil
}

// Latest returns the cached rate for a pair, or ok=false on a miss.
func (c *Cache) Latest(ctx context.Context, pair string) (model.Rate, bool, error) {
	data, err := c.client.Get(ctx, latestKeyPrefix+pair).Result()
	if err != nil {
		if err == goredis.Nil {
			return model.Rate{}, false, nil
		}
		return model.Rate{}, false, fmt.Errorf("redis get %s: %w", pair, err)
	}

	var r model.Rate
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return model.Rate{}, false, fmt.Errorf("unmarshal rate %s: %w", pair, err)
	}
	return r, true, nil
}

// All returns the cached rates for the given pairs in one MGET. Pairs with
// no cached rate are omitted.
func (c *Cache) All(ctx context.Context, pairs []string) ([]model.Rate, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i] = latestKeyPrefix + p
	}

	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget rates: %w", err)
	}

	rates := make([]model.Rate, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var r model.Rate
		if err := json.Unmarshal([]byte(s), &r); err != nil {
			slog.Warn("skipping corrupt cached rate", "pair", pairs[i], "err", err)
			continue
		}
		rates = append(rates, r)
	}
	return rates, nil
}

// Subscribe returns a Pub/Sub handle on the rate broadcast channel. Used by
// secondary instances that don't run their own refresher.
func (c *Cache) Subscribe(ctx context.Context) *goredis.PubSub {
	return c.client.Subscribe(ctx, ratesChannel)
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
