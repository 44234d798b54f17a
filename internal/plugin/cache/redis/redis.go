package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/firedesk/records-service/internal/config"
	"github.com/firedesk/records-service/internal/model"
	registrycache "github.com/firedesk/records-service/internal/registry/cache"
	"github.com/firedesk/records-service/internal/registry/store"
	goredis "github.com/redis/go-redis/v9"
)

func init() {
	registrycache.Register(registrycache.Plugin{
		Name:   "redis",
		Loader: load,
	})
}

func load(ctx context.Context) (registrycache.StatsCache, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis cache: redis URL is required")
	}
	return LoadFromURL(ctx, cfg.RedisURL)
}

// LoadFromURL creates a StatsCache from a Redis-compatible URL.
func LoadFromURL(ctx context.Context, redisURL string) (registrycache.StatsCache, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis cache: invalid URL: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis cache: ping failed: %w", err)
	}
	return &redisStatsCache{client: client}, nil
}

type redisStatsCache struct {
	client *goredis.Client
}

func statsKey(kind model.RecordKind) string {
	return fmt.Sprintf("record-stats:%s", kind)
}

func (c *redisStatsCache) Available() bool {
	return true
}

func (c *redisStatsCache) Get(ctx context.Context, kind model.RecordKind) (*store.StatusCounts, error) {
	raw, err := c.client.Get(ctx, statsKey(kind)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis cache: get: %w", err)
	}
	var counts store.StatusCounts
	if err := json.Unmarshal(raw, &counts); err != nil {
		return nil, fmt.Errorf("redis cache: decode: %w", err)
	}
	return &counts, nil
}

func (c *redisStatsCache) Set(ctx context.Context, kind model.RecordKind, counts store.StatusCounts, ttl time.Duration) error {
	raw, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("redis cache: encode: %w", err)
	}
	if err := c.client.Set(ctx, statsKey(kind), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis cache: set: %w", err)
	}
	return nil
}
