// Package noop is the cache used when no cache backend is configured:
// every read misses, so dashboard counts always come from the store.
package noop

import (
	"context"
	"time"

	"github.com/firedesk/records-service/internal/model"
	registrycache "github.com/firedesk/records-service/internal/registry/cache"
	"github.com/firedesk/records-service/internal/registry/store"
)

func init() {
	registrycache.Register(registrycache.Plugin{
		Name: "none",
		Loader: func(ctx context.Context) (registrycache.StatsCache, error) {
			return Cache{}, nil
		},
	})
}

// Cache is a StatsCache that never holds anything.
type Cache struct{}

func (Cache) Available() bool { return false }

func (Cache) Get(ctx context.Context, kind model.RecordKind) (*store.StatusCounts, error) {
	return nil, nil
}

func (Cache) Set(ctx context.Context, kind model.RecordKind, counts store.StatusCounts, ttl time.Duration) error {
	return nil
}
