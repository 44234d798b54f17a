// Package security implements the binary admin/non-admin distinction:
// requests carrying a configured admin API key act as review staff,
// everything else is a citizen. Authentication mechanics beyond static
// keys (sessions, identity providers) are an external concern.
package security

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKeyIsAdmin is the gin context key for admin authorization.
const ContextKeyIsAdmin = "isAdmin"

// AuthMiddleware resolves the caller's role from the Authorization bearer
// token or the X-API-Key header. Unauthenticated requests proceed as
// citizens; only admin-gated handlers reject them.
func AuthMiddleware(adminKeys map[string]bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyIsAdmin, adminKeys[bearerToken(c)])
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(c.GetHeader("X-API-Key"))
}

// IsAdmin reports whether the current request carries the admin role.
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ContextKeyIsAdmin)
}

// RequireAdmin aborts with 403 unless the request carries the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
