package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/firedesk/records-service/internal/model"
	"github.com/firedesk/records-service/internal/registry/store"
)

type statsCacheKey struct{}

// WithStatsCacheContext returns a new context carrying the given StatsCache.
func WithStatsCacheContext(ctx context.Context, c StatsCache) context.Context {
	return context.WithValue(ctx, statsCacheKey{}, c)
}

// StatsCacheFromContext retrieves the StatsCache from the context.
// Returns nil if none was set.
func StatsCacheFromContext(ctx context.Context) StatsCache {
	c, _ := ctx.Value(statsCacheKey{}).(StatsCache)
	return c
}

// StatsCache caches dashboard status counts per record kind. Staleness is
// bounded by the TTL; mutations do not invalidate.
type StatsCache interface {
	Available() bool
	// Get returns the cached counts, or nil on a miss.
	Get(ctx context.Context, kind model.RecordKind) (*store.StatusCounts, error)
	Set(ctx context.Context, kind model.RecordKind, counts store.StatusCounts, ttl time.Duration) error
}

// Loader creates a StatsCache from the config carried in ctx.
type Loader func(ctx context.Context) (StatsCache, error)

// Plugin represents a cache plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a cache plugin. Called from init() in plugin packages.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered cache plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named cache plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown cache %q; valid: %v", name, Names())
}
