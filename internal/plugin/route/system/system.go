// Package system provides the health, readiness, and metrics endpoints.
package system

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/firedesk/records-service/internal/registry/route"
)

var ready atomic.Bool

// pingFn reports backend liveness for the readiness probe. Set by the
// server once the datastore is loaded.
var pingFn atomic.Value // func(context.Context) error

func init() {
	route.Register(route.Plugin{
		Order:  0,
		Loader: mountRoutes,
	})
}

// MarkReady flips the readiness probe. Called by the server once routes are
// mounted and the listener is about to accept traffic.
func MarkReady(isReady bool) {
	ready.Store(isReady)
}

// SetPinger installs the datastore liveness check used by /ready.
func SetPinger(ping func(context.Context) error) {
	pingFn.Store(ping)
}

func mountRoutes(r *gin.Engine) error {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if !ready.Load() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
			return
		}
		if ping, ok := pingFn.Load().(func(context.Context) error); ok && ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return nil
}
