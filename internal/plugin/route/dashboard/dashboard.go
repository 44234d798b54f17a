// Package dashboard serves aggregate status counts for the review console.
package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/firedesk/records-service/internal/lifecycle"
	"github.com/firedesk/records-service/internal/security"
)

// MountRoutes mounts GET /v1/dashboard/stats. Counts are admin only.
func MountRoutes(r *gin.Engine, svc *lifecycle.Service) {
	r.GET("/v1/dashboard/stats", security.RequireAdmin(), func(c *gin.Context) {
		stats(c, svc)
	})
}

func stats(c *gin.Context, svc *lifecycle.Service) {
	out := gin.H{}
	kinds := lifecycle.Kinds()
	for i := range kinds {
		spec := &kinds[i]
		counts, err := svc.Stats(c.Request.Context(), spec)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		out[spec.Path] = counts
	}
	c.JSON(http.StatusOK, out)
}
