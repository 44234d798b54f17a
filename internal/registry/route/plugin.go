package route

import (
	"sort"
	"sync"

	"github.com/gin-gonic/gin"
)

// RouterLoader initializes routes on the gin engine.
type RouterLoader func(r *gin.Engine) error

// Plugin represents a route plugin with an order for a deterministic mount
// sequence. Domain routes that need wired dependencies are mounted
// explicitly by the server; this registry covers self-contained routes
// (health, readiness, metrics).
type Plugin struct {
	Order  int
	Loader RouterLoader
}

var (
	plugins  []Plugin
	sortOnce sync.Once
)

// Register adds a route plugin. Called from init() in plugin packages.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Loaders returns all registered route loaders, sorted by order.
func Loaders() []RouterLoader {
	sortOnce.Do(func() {
		sort.Slice(plugins, func(i, j int) bool { return plugins[i].Order < plugins[j].Order })
	})
	loaders := make([]RouterLoader, len(plugins))
	for i, p := range plugins {
		loaders[i] = p.Loader
	}
	return loaders
}
