// Package redis caches the latest bar and indicator snapshot per
// (symbol, timeframe) so read-heavy dashboard clients don't hit SQLite for
// every poll. The cache is best-effort: writes happen after a successful
// store upsert and failures are logged, never propagated.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"zenigh/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const defaultLatestTTL = 30 * time.Minute

// Config configures the cache connection.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration // defaults to defaultLatestTTL
}

// Latest is the cached payload for one (symbol, timeframe).
type Latest struct {
	Bar      *model.Bar      `json:"bar,omitempty"`
	Snapshot *model.Snapshot `json:"snapshot,omitempty"`
}

// Cache wraps a Redis client for latest-value reads and writes.
type Cache struct {
	client *goredis.Client
	ttl    time.Duration
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// New creates a Cache and pings the server.
func New(cfg Config) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultLatestTTL
	}

	slog.Info("connected to redis", "addr", cfg.Addr)
	return &Cache{client: client, ttl: ttl}, nil
}

func latestKey(symbol string, tf model.Timeframe) string {
	return "latest:" + string(tf) + ":" + symbol
}

// SetLatest stores the most recent bar and snapshot for (symbol, tf) with a
// TTL. A nil Cache receiver is a no-op so callers can run without Redis.
func (c *Cache) SetLatest(ctx context.Context, symbol string, tf model.Timeframe, latest Latest) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(latest)
	if err != nil {
		slog.Warn("cache encode failed", "symbol", symbol, "timeframe", string(tf), "err", err)
		return
	}
	if err := c.client.Set(ctx, latestKey(symbol, tf), payload, c.ttl).Err(); err != nil {
		slog.Warn("cache write failed", "symbol", symbol, "timeframe", string(tf), "err", err)
	}
}

// GetLatest returns the cached payload, or (nil, nil) on a miss or when the
// cache is not configured.
func (c *Cache) GetLatest(ctx context.Context, symbol string, tf model.Timeframe) (*Latest, error) {
	if c == nil {
		return nil, nil
	}
	payload, err := c.client.Get(ctx, latestKey(symbol, tf)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var latest Latest
	if err := json.Unmarshal(payload, &latest); err != nil {
		return nil, fmt.Errorf("decode cached latest: %w", err)
	}
	return &latest, nil
}

// Close closes the Redis connection. Safe on a nil receiver.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
